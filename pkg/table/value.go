package table

// Kind classifies a cell value for the structural flattening transform.
type Kind int

const (
	// KindScalar covers everything flattening leaves alone.
	KindScalar Kind = iota
	// KindRecord marks a nested record (map) cell.
	KindRecord
	// KindRecordList marks a list whose elements include a record or a list.
	KindRecordList
)

// KindOf classifies a single cell value.
func KindOf(v interface{}) Kind {
	switch e := v.(type) {
	case map[string]interface{}:
		return KindRecord
	case []interface{}:
		for _, x := range e {
			switch x.(type) {
			case map[string]interface{}, []interface{}:
				return KindRecordList
			}
		}
	}
	return KindScalar
}

// classifyColumns buckets every column by the kind of its first non-missing
// value. Later rows holding a different shape are not reclassified; the
// layout is inferred from that first sample only. Empty columns count as
// scalar.
func classifyColumns(f *Frame) (records, recordLists, scalars []string) {
	for _, c := range f.columns {
		var sample interface{}
		for _, v := range f.data[c] {
			if v != nil {
				sample = v
				break
			}
		}
		switch KindOf(sample) {
		case KindRecord:
			records = append(records, c)
		case KindRecordList:
			recordLists = append(recordLists, c)
		default:
			scalars = append(scalars, c)
		}
	}
	return records, recordLists, scalars
}
