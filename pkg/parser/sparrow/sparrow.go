// Package sparrow holds the notefile table of the Sparrow reference sensors.
package sparrow

import (
	"github.com/sguter90/sparrowmaestro/pkg/models"
	"github.com/sguter90/sparrowmaestro/pkg/parser"
)

// Notefile suffixes emitted by Sparrow nodes. The file name is "<nodeID><suffix>".
const (
	AirFile    = "#air.qo"
	MotionFile = "#motion.qo"
)

// Files maps each notefile suffix to the sensor types carried in its body.
// Adding a device message type means adding an entry here.
var Files = map[string][]parser.Extractor{
	AirFile: {
		{SensorType: models.SensorTypeTemperature, Field: "temperature"},
		{SensorType: models.SensorTypeHumidity, Field: "humidity"},
		{SensorType: models.SensorTypePressure, Field: "pressure"},
		{SensorType: models.SensorTypeVoltage, Field: "voltage"},
	},
	MotionFile: {
		{SensorType: models.SensorTypeCount, Field: "count"},
	},
}

// Register adds the Sparrow notefiles to a registry
func Register(r *parser.Registry) {
	for suffix, extractors := range Files {
		r.Register(suffix, extractors...)
	}
}

// NewRegistry returns a registry preloaded with the Sparrow notefiles
func NewRegistry() *parser.Registry {
	r := parser.NewRegistry()
	Register(r)
	return r
}
