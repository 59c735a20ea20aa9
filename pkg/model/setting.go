package model

// Setting is a single key-value row in the settings store. Boolean settings
// are stored as the strings "true" and "false".
type Setting struct {
	Key   string `json:"key" bson:"_id" validate:"required,min=1,max=100"`
	Value string `json:"value" bson:"value" validate:"omitempty,max=500"`
}

// Settings keys understood by the scheduling core.
const (
	SettingEnableHourlySlots  = "enableHourlySlots"
	SettingAllowMultipleSlots = "allowMultipleSlots"
)

// SchedulingMode selects the active scheduling granularity. It is derived
// from the settings store on each evaluation, never cached by the core.
type SchedulingMode struct {
	SlotMode  bool `json:"enableHourlySlots"`
	MultiSlot bool `json:"allowMultipleSlots"`
}
