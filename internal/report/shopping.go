// Package report renders an aggregated shopping list as a downloadable file.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (f Format) Filename() string {
	return "shopping_list." + string(f)
}

// Render writes the list in the requested format.
func Render(f Format, items []service.ShoppingItem) ([]byte, error) {
	if f == FormatCSV {
		return renderCSV(items)
	}
	return renderText(items), nil
}

func renderText(items []service.ShoppingItem) []byte {
	buf := bytes.Buffer{}
	buf.WriteString("Shopping list\n\n")
	for i, it := range items {
		fmt.Fprintf(&buf, "%d. %s (%s): %d\n", i+1, it.Name, it.MeasurementUnit, it.TotalAmount)
	}
	return buf.Bytes()
}

func renderCSV(items []service.ShoppingItem) ([]byte, error) {
	buf := bytes.Buffer{}
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "measurement_unit", "amount"}); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	for _, it := range items {
		if err := w.Write([]string{it.Name, it.MeasurementUnit, strconv.FormatInt(it.TotalAmount, 10)}); err != nil {
			return nil, errors.Wrap(err, "write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}
	return buf.Bytes(), nil
}
