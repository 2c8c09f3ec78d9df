package domain

// StatementResult is the tabular payload of a SQL attachment. Exactly one of
// DataArray or TypedArray is normally populated, depending on the wire encoding
// the service chose.
type StatementResult struct {
	Columns    []string
	DataArray  [][]any
	TypedArray [][]TypedCell
}

// TypedCell is one value of a typed-array row. The service sets at most one
// field; unset fields are nil.
type TypedCell struct {
	Str       any
	Int       any
	Double    any
	Bool      any
	Date      any
	Timestamp any
}

// Scalar returns the first non-empty field in the order str, int, double,
// bool, date, timestamp, or nil when the cell is empty. Nil and "" count as
// empty; false and 0 do not.
func (c TypedCell) Scalar() any {
	for _, v := range []any{c.Str, c.Int, c.Double, c.Bool, c.Date, c.Timestamp} {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v
	}
	return nil
}

// QueryResultFetch is the outcome of a best-effort result fetch. A nil Result
// means the result is absent; Err, when set, records why.
type QueryResultFetch struct {
	Result *StatementResult
	Err    error
}

func (f QueryResultFetch) Present() bool {
	return f.Result != nil
}

// Answer is the normalized form of a terminal message.
type Answer struct {
	Analysis string
	SQL      string
	Columns  []string
	Rows     [][]any
	RowCount int
	Status   string
}
