package memo

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Dump writes a human-readable rendering of the content of table to w, one row
// per index. Byte array values are printed as quoted strings.
//
// The function is intended for debugging, the output format is not stable.
func Dump[T any](w io.Writer, table Table[T]) error {
	values := make([]T, table.Size())
	if err := table.WriteOut(values); err != nil {
		return err
	}
	null, hasNull := table.GetNull()

	t := tablewriter.NewWriter(w)
	t.SetAutoFormatHeaders(false)
	t.SetHeader([]string{"index", "value"})

	for i, v := range values {
		value := "NULL"
		if !hasNull || int32(i) != null {
			value = formatValue(v)
		}
		t.Append([]string{strconv.Itoa(i), value})
	}

	t.Render()
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []byte:
		return strconv.Quote(string(x))
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
