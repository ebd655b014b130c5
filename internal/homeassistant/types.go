package homeassistant

type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

type fanConfiguration struct {
	UniqueId               string   `json:"unique_id"`
	Name                   string   `json:"name"`
	StateTopic             string   `json:"state_topic"`
	CommandTopic           string   `json:"command_topic"`
	PercentageStateTopic   string   `json:"percentage_state_topic"`
	PercentageCommandTopic string   `json:"percentage_command_topic"`
	PresetModeStateTopic   string   `json:"preset_mode_state_topic"`
	PresetModeCommandTopic string   `json:"preset_mode_command_topic"`
	PresetModes            []string `json:"preset_modes"`
	SpeedRangeMin          int      `json:"speed_range_min"`
	SpeedRangeMax          int      `json:"speed_range_max"`
	Device                 device   `json:"device"`
}

type selectConfiguration struct {
	UniqueId     string   `json:"unique_id"`
	Name         string   `json:"name"`
	StateTopic   string   `json:"state_topic"`
	CommandTopic string   `json:"command_topic"`
	Options      []string `json:"options"`
	Icon         string   `json:"icon,omitempty"`
	Device       device   `json:"device"`
}

type binarySensorConfiguration struct {
	UniqueId    string `json:"unique_id"`
	Name        string `json:"name"`
	DeviceClass string `json:"device_class,omitempty"`
	StateTopic  string `json:"state_topic"`
	Device      device `json:"device"`
}

type sensorConfiguration struct {
	UniqueId          string `json:"unique_id"`
	Name              string `json:"name"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
	Device            device `json:"device"`
}
