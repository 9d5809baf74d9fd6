// Package pdfmeta reads metadata from uploaded PDF files.
package pdfmeta

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type Reader struct{}

// PageCount returns the number of pages in the PDF at filePath.
func (Reader) PageCount(filePath string) (int, error) {
	n, err := api.PageCountFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read pdf page count: %w", err)
	}
	return n, nil
}
