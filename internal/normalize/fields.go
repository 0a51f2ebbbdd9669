package normalize

// Field names a canonical spreadsheet column consumed by the engine.
type Field string

const (
	FieldEquipmentCode Field = "equipment_code"
	FieldDate          Field = "date"
	FieldTime          Field = "time"
	FieldHourMeter     Field = "hour_meter"
	FieldOdometer      Field = "odometer"
	FieldLiters        Field = "liters"
	FieldOperator      Field = "operator"
	FieldObservation   Field = "observation"
)

var knownFields = map[Field]bool{
	FieldEquipmentCode: true,
	FieldDate:          true,
	FieldTime:          true,
	FieldHourMeter:     true,
	FieldOdometer:      true,
	FieldLiters:        true,
	FieldOperator:      true,
	FieldObservation:   true,
}

// ParseField validates a field name coming from configuration.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	return f, knownFields[f]
}

// AliasTable maps each canonical field to the header spellings accepted for
// it. One table serves every sheet; per-call-site alias lists are not used.
type AliasTable map[Field][]string

// DefaultAliasTable covers the header spellings seen across the site sheets,
// in Spanish and English, with and without accents.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		FieldEquipmentCode: {"equipo", "código", "codigo", "código equipo", "cod equipo", "equipment", "code", "unidad"},
		FieldDate:          {"fecha", "fecha lectura", "fecha de lectura", "date", "día", "dia"},
		FieldTime:          {"hora", "hora lectura", "time"},
		FieldHourMeter:     {"horómetro", "horometro", "horómetro actual", "horas", "hour meter", "hourmeter", "hrs"},
		FieldOdometer:      {"odómetro", "odometro", "odómetro actual", "kilometraje", "km", "odometer"},
		FieldLiters:        {"litros", "litros despachados", "combustible", "liters"},
		FieldOperator:      {"operador", "operario", "operator", "responsable"},
		FieldObservation:   {"observación", "observacion", "observaciones", "observation", "notas"},
	}
}

// FindColumn returns the row key whose normalized form matches an alias of
// the field, walking aliases in declared order. When several row keys
// normalize identically the lexicographically smallest wins, keeping lookups
// deterministic across map iteration orders.
func (t AliasTable) FindColumn(row map[string]any, field Field) (string, bool) {
	byKey := make(map[string]string, len(row))
	for k := range row {
		nk := Key(k)
		if prev, seen := byKey[nk]; !seen || k < prev {
			byKey[nk] = k
		}
	}
	for _, alias := range t[field] {
		if k, ok := byKey[Key(alias)]; ok {
			return k, true
		}
	}
	return "", false
}

// Value looks the field up in the row and returns the raw cell value.
func (t AliasTable) Value(row map[string]any, field Field) (any, bool) {
	k, ok := t.FindColumn(row, field)
	if !ok {
		return nil, false
	}
	return row[k], true
}
