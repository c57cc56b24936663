package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

func TestParseQuery(t *testing.T) {
	meta := Parse("Is the infringement of Car 30 in 2024 abu dhabi Grand Prix fair")

	assert.Equal(t, domain.DocumentMetadata{
		Year:            "2024",
		DocType:         domain.DocTypeDecision,
		Location:        "abu dhabi",
		CarNum:          "30",
		AllInvolvedCars: "30",
	}, meta)
}

func TestParseRegulationShortCircuits(t *testing.T) {
	texts := []string{
		"2024 Formula One Sporting Regulations, Car 30 at the Japanese Grand Prix",
		"REGULATIONS issued for the Monaco race",
		"regulations",
	}
	for _, text := range texts {
		meta := Parse(text)
		assert.Equal(t, domain.DocTypeRegulation, meta.DocType, text)
		assert.Empty(t, meta.Location, text)
		assert.Empty(t, meta.CarNum, text)
		assert.Empty(t, meta.AllInvolvedCars, text)
	}

	meta := Parse("Driver regulations breach, Car 4")
	assert.Equal(t, domain.DocTypeDecision, meta.DocType)
	assert.Equal(t, "4", meta.CarNum)
}

func TestParseInvolvedCarsRoundTrip(t *testing.T) {
	texts := []string{
		"Cars 22, 81 and 4 at turn 1, Car No. 22 was investigated",
		"Car 30 and Car 30 again",
		"Cars 1 and 11",
	}
	for _, text := range texts {
		meta := Parse(text)
		require.NotEmpty(t, meta.AllInvolvedCars, text)
		assert.Equal(t, ExtractCarNumbers(text), strings.Split(meta.AllInvolvedCars, ", "), text)
		assert.Equal(t, meta.Cars()[0], meta.CarNum, text)
	}
}

func TestParseWithoutCarsLeavesFieldsAbsent(t *testing.T) {
	meta := Parse("Summons for a team representative")
	assert.Empty(t, meta.CarNum)
	assert.Empty(t, meta.AllInvolvedCars)
	assert.Empty(t, meta.Year)
}

func TestParseFilename(t *testing.T) {
	meta := ParseFilename("2024_abu_dhabi_grand_prix_-_infringement_-_car_30_-_causing_a_collision.pdf")
	assert.Equal(t, "2024", meta.Year)
	assert.Equal(t, "abu dhabi", meta.Location)
	assert.Equal(t, "30", meta.CarNum)
}

func TestExtractYear(t *testing.T) {
	assert.Equal(t, "2024", ExtractYear("in 2024 abu dhabi"))
	assert.Equal(t, "2019", ExtractYear("2019 Sakhir"))
	assert.Equal(t, "1999", ExtractYear("lap 12345 in 1999"))
	assert.Equal(t, "", ExtractYear("car 44 and 123"))
}

func TestExtractCarNumbers(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{text: "infringement of Car 30 in 2024 abu dhabi GP", want: []string{"30"}},
		{text: "Car No. 16 left the track", want: []string{"16"}},
		{text: "Car\n44 - Lewis Hamilton", want: []string{"44"}},
		{text: "Cars 22, 81 and 4", want: []string{"22", "81", "4"}},
		{text: "collision between car 1 and car 11", want: []string{"1", "11"}},
		{text: "no car referenced", want: []string{}},
	}
	for _, tc := range cases {
		got := ExtractCarNumbers(tc.text)
		require.NotNil(t, got)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestIsInterestingFile(t *testing.T) {
	assert.True(t, IsInterestingFile("2024 Abu Dhabi Grand Prix - Infringement - Car 30"))
	assert.True(t, IsInterestingFile("Decision - Car 4"))
	assert.True(t, IsInterestingFile("Summons - Car 1"))
	assert.True(t, IsInterestingFile("Offence - Car 81"))
	assert.True(t, IsInterestingFile("2025_formula_1_sporting_regulations"))
	assert.False(t, IsInterestingFile("Observation abou Car 15 - Track Limits"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  a b\n\n\tc  "))
	assert.Equal(t, "car 30 in abu dhabi", NormalizeQuery("Car 30 in\nAbu Dhabi "))
	assert.Equal(t, "", NormalizeText(" \n "))
}
