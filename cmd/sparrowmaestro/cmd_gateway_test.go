package main

import (
	"testing"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

func TestFormatReadings(t *testing.T) {
	readings := models.CurrentReadings{
		models.SensorTypeTemperature: {SensorType: models.SensorTypeTemperature, Value: 21.5},
		models.SensorTypeCount:       {SensorType: models.SensorTypeCount, Value: 3},
		"co2":                        {SensorType: "co2", Value: 412},
	}

	got := formatReadings(readings)
	want := "co2 412, Motion Count 3, Temperature 21.5 °C"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	if got := formatReadings(nil); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}
