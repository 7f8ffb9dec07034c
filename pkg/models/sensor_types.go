package models

// SensorType constants for the readings Sparrow nodes report
const (
	SensorTypeTemperature = "temperature"
	SensorTypeHumidity    = "humidity"
	SensorTypePressure    = "pressure"
	SensorTypeVoltage     = "voltage"
	SensorTypeCount       = "count"
)

// SensorCategory constants for standard sensor categories
const (
	SensorCategoryEnvironment = "Environment"
	SensorCategoryMotion      = "Motion"
	SensorCategorySystem      = "System"
)

// SensorTypeInfo holds metadata about sensor types
type SensorTypeInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
}

// SensorTypeRegistry maps sensor type names to their information
var SensorTypeRegistry = map[string]SensorTypeInfo{
	SensorTypeTemperature: {
		Name:        SensorTypeTemperature,
		DisplayName: "Temperature",
		Category:    SensorCategoryEnvironment,
		Unit:        "°C",
	},
	SensorTypeHumidity: {
		Name:        SensorTypeHumidity,
		DisplayName: "Humidity",
		Category:    SensorCategoryEnvironment,
		Unit:        "%",
	},
	SensorTypePressure: {
		Name:        SensorTypePressure,
		DisplayName: "Pressure",
		Category:    SensorCategoryEnvironment,
		Unit:        "Pa",
	},
	SensorTypeVoltage: {
		Name:        SensorTypeVoltage,
		DisplayName: "Voltage",
		Category:    SensorCategorySystem,
		Unit:        "V",
	},
	SensorTypeCount: {
		Name:        SensorTypeCount,
		DisplayName: "Motion Count",
		Category:    SensorCategoryMotion,
		Unit:        "",
	},
}

// LookupSensorType returns the metadata for a sensor type.
// Unknown types get a generic entry so newly registered files still render.
func LookupSensorType(name string) SensorTypeInfo {
	if info, ok := SensorTypeRegistry[name]; ok {
		return info
	}
	return SensorTypeInfo{Name: name, DisplayName: name, Category: SensorCategorySystem}
}
