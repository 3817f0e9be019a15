package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docupost/invoice-extract/internal/common"
	"github.com/docupost/invoice-extract/internal/extract"
)

// amountSchema matches the serialized form of extract.Amount: value is the
// parsed number, the raw text when parsing failed, or null.
func amountSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":     map[string]any{"type": []string{"number", "string", "null"}},
			"currency":  map[string]any{"type": "string"},
			"formatted": map[string]any{"type": "string"},
		},
		"required":             []string{"value", "currency", "formatted"},
		"additionalProperties": false,
	}
}

// InvoiceSchema describes the per-document JSON artifact.
func InvoiceSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"InvoiceNumber": map[string]any{"type": []string{"string", "null"}},
			"InvoiceDate":   map[string]any{"type": []string{"string", "null"}},
			"LineItems": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"Description": map[string]any{"type": "string"},
						"Quantity":    map[string]any{"type": "number"},
						"UnitPrice":   amountSchema(),
						"Amount":      amountSchema(),
					},
					"additionalProperties": false,
				},
			},
			"InvoiceTotal": amountSchema(),
			"PaymentTerms": map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"InvoiceNumber", "InvoiceDate", "LineItems", "InvoiceTotal", "PaymentTerms"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Stem strips the extension from a document filename, for artifact naming.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteInvoiceJSON writes the extracted record to <stem>_extracted.json in
// outDir, validating it against the invoice schema first.
func WriteInvoiceJSON(outDir, filename string, rec *extract.InvoiceRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", common.WrapError(err, "encode invoice record")
	}
	if err := ValidateJSONAgainstSchema(InvoiceSchema(), data); err != nil {
		return "", common.WrapError(err, "validate invoice record")
	}

	path := filepath.Join(outDir, Stem(filename)+"_extracted.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", common.WrapError(err, "write invoice json")
	}
	return path, nil
}
