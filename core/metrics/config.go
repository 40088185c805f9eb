package metrics

// Config selects which sinks record board and mutation activity.
type Config struct {
	PrometheusEnabled bool   `json:"prometheusEnabled"`
	PrometheusPort    string `json:"prometheusPort"`

	InfluxEnabled bool   `json:"influxEnabled"`
	InfluxURL     string `json:"influxUrl"`
	InfluxToken   string `json:"influxToken"`
	InfluxOrg     string `json:"influxOrg"`
	InfluxBucket  string `json:"influxBucket"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}
