package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBasic(t *testing.T) {
	text := "AMD data center GPU revenue accelerating with hyperscaler adoption and multi-year cloud commitments."
	kws := Extract(text, 4)
	assert.Equal(t, []string{"Amd", "Data", "Center", "Gpu"}, kws)
}

func TestExtractFrequencyThenFirstOccurrence(t *testing.T) {
	text := "latency budget latency cache budget latency throughput"
	assert.Equal(t, []string{"Latency", "Budget", "Cache"}, Extract(text, 3))
}

func TestExtractFiltersShortAndNumericTokens(t *testing.T) {
	text := "2024 go io revenue 1999 revenue"
	assert.Equal(t, []string{"Revenue"}, Extract(text, 4))
}

func TestExtractStopwordsOnlyFallsBack(t *testing.T) {
	kws := Extract("The and if or but the and", 4)
	assert.LessOrEqual(t, len(kws), 4)
	assert.Equal(t, []string{"The", "And", "If", "Or"}, kws)
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Extract("", 4))
	assert.Empty(t, Extract("...", 4))
	assert.Empty(t, Extract("words here", 0))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Instinct Accelerator", Summary("Instinct accelerator", 4))
	assert.Equal(t, "", Summary("", 4))
}
