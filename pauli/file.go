package pauli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadOperator reads an operator from a CSV file whose rows are
// "coefficient,pauli string". Coefficients may use the numpy "j" notation.
func ReadOperator(fpath string) (Operator, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer f.Close()

	h := make(Operator, 0)
	r := csv.NewReader(f)
	rowI := -1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", rowI))
		}
		rowI++
		if len(record) != 2 {
			return nil, errors.Errorf("%d %#v", rowI, record)
		}

		c, err := ParseComplex(record[0])
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d %#v", rowI, record))
		}
		p, err := Parse(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d %#v", rowI, record))
		}

		h = append(h, Term{C: c, P: p})
	}

	if err := h.Validate(); err != nil {
		return nil, errors.Wrap(err, fpath)
	}
	return h, nil
}

// ParseComplex parses a complex number, accepting the numpy "j" notation.
func ParseComplex(s string) (complex64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "j", "i")
	v, err := strconv.ParseComplex(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return complex64(v), nil
}
