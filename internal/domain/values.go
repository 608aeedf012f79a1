package domain

// Field names a single quantity of Values.
type Field string

const (
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldPM25        Field = "pm25"
	FieldPM10        Field = "pm10"
	FieldCO2         Field = "co2"
	FieldTVOC        Field = "tvoc"
)

// Fields lists every quantity in storage column order.
var Fields = []Field{FieldTemperature, FieldHumidity, FieldPM25, FieldPM10, FieldCO2, FieldTVOC}

// Ptr returns the address of the slot holding f, so callers can read or
// replace a single quantity without a switch of their own.
func (v *Values) Ptr(f Field) **float64 {
	switch f {
	case FieldTemperature:
		return &v.Temperature
	case FieldHumidity:
		return &v.Humidity
	case FieldPM25:
		return &v.PM25
	case FieldPM10:
		return &v.PM10
	case FieldCO2:
		return &v.CO2
	case FieldTVOC:
		return &v.TVOC
	}
	return nil
}

// Get returns the value of f, or nil when absent.
func (v Values) Get(f Field) *float64 {
	p := v.Ptr(f)
	if p == nil {
		return nil
	}
	return *p
}

// Set stores val into f. Set copies the float so the caller's pointer is
// never shared with the receiver.
func (v *Values) Set(f Field, val *float64) {
	p := v.Ptr(f)
	if p == nil {
		return
	}
	if val == nil {
		*p = nil
		return
	}
	x := *val
	*p = &x
}

// Empty reports whether no quantity is present.
func (v Values) Empty() bool {
	for _, f := range Fields {
		if v.Get(f) != nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (v Values) Clone() Values {
	var out Values
	for _, f := range Fields {
		out.Set(f, v.Get(f))
	}
	return out
}
