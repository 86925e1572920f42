package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePage(t *testing.T) {
	tests := []struct {
		name     string
		rawPage  string
		mode     PageMode
		size     int
		expected Page
	}{
		{name: "auto without page param", rawPage: "", mode: PageAuto, size: 10, expected: Page{}},
		{name: "auto with page param", rawPage: "2", mode: PageAuto, size: 10, expected: Page{Enabled: true, Number: 2, Size: 10}},
		{name: "forced without page param", rawPage: "", mode: PageForced, size: 10, expected: Page{Enabled: true, Number: 1, Size: 10}},
		{name: "disabled ignores page param", rawPage: "3", mode: PageDisabled, size: 10, expected: Page{}},
		{name: "non-positive page defaults to 1", rawPage: "0", mode: PageAuto, size: 10, expected: Page{Enabled: true, Number: 1, Size: 10}},
		{name: "garbage page defaults to 1", rawPage: "abc", mode: PageAuto, size: 10, expected: Page{Enabled: true, Number: 1, Size: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolvePage(tt.rawPage, tt.mode, tt.size))
		})
	}
}

func TestPageOffset(t *testing.T) {
	p := ResolvePage("3", PageAuto, 10)
	assert.Equal(t, 20, p.Offset())

	p = ResolvePage("1", PageAuto, 10)
	assert.Equal(t, 0, p.Offset())
}

func TestPageCount(t *testing.T) {
	p := ResolvePage("1", PageAuto, 10)
	assert.Equal(t, 3, p.PageCount(25))
	assert.Equal(t, 1, p.PageCount(10))
	assert.Equal(t, 0, p.PageCount(0))
}

func TestParsePageMode(t *testing.T) {
	assert.Equal(t, PageForced, ParsePageMode("forced"))
	assert.Equal(t, PageDisabled, ParsePageMode("disabled"))
	assert.Equal(t, PageAuto, ParsePageMode("auto"))
	assert.Equal(t, PageAuto, ParsePageMode(""))
}
