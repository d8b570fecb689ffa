package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "小林", "Mori"}, ParseNames(" A, B ,,小林、Mori，"))
	assert.Nil(t, ParseNames(" , "))
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"待开始":         StatusPending,
		"已确认":         StatusPending,
		" confirmed ": StatusPending,
		"Pending":     StatusPending,
		"未确认":         StatusUnconfirmed,
		"unconfirmed": StatusUnconfirmed,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("done")
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "待开始", Status("已确认").Display())
	assert.Equal(t, "未确认", StatusUnconfirmed.Display())
	assert.Equal(t, "pending", Status("已确认").StringLocalized())
	assert.Equal(t, "unknown", Status("进行中").StringLocalized())
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("3")
	require.NoError(t, err)
	assert.Equal(t, Month("3月"), m)

	m, err = ParseMonth("12月")
	require.NoError(t, err)
	assert.Equal(t, 11, m.Index())

	_, err = ParseMonth("13")
	assert.Error(t, err)
}

func TestYearUnmarshalJSON(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "year": 2025}`), &task))
	assert.Equal(t, Year("2025"), task.Year)

	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "year": "2024"}`), &task))
	assert.Equal(t, Year("2024"), task.Year)

	assert.Error(t, json.Unmarshal([]byte(`{"year": true}`), &task))
}

func TestTaskNormalize(t *testing.T) {
	task := Task{Year: " 2025 ", Month: "3月", Type: " 插画 ", Status: "已确认", Artists: []string{"", " A "}, ArtistsTemp: []string{" "}, Notes: "  "}
	task.Normalize()

	assert.Equal(t, Year("2025"), task.Year)
	assert.Equal(t, "插画", task.Type)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, []string{"A"}, task.Artists)
	assert.Nil(t, task.ArtistsTemp)
	assert.Empty(t, task.Notes)
	assert.NoError(t, task.Validate())
}

func TestTaskMarshalOmitsOptional(t *testing.T) {
	b, err := json.Marshal(Task{ID: 1, Year: "2025", Month: "1月", Type: "a", Status: StatusPending, Artists: []string{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"year":"2025","month":"1月","type":"a","artists":[],"status":"待开始"}`, string(b))
}
