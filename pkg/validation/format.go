// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/kpicalc/pkg/constants"
)

var outputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatXLSX,
	constants.OutputFormatPDF,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, f := range outputFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s", strings.Join(outputFormats, ", "), format)
}

// OutputFile returns the file a binary output format is written to. Text
// formats go to stdout and return an empty string.
func OutputFile(format, file string) string {
	switch format {
	case constants.OutputFormatXLSX:
		if file == "" {
			return constants.DefaultXLSXFile
		}
	case constants.OutputFormatPDF:
		if file == "" {
			return constants.DefaultPDFFile
		}
	default:
		return ""
	}
	return file
}
