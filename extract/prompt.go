package extract

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/tbxark/fieldagent/definition"
)

func formatMissingFieldsSection(fields []*definition.FieldSpec) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Fields still needed:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Type", "Description", "Question")
	for _, f := range fields {
		_ = table.Append(f.Name, string(f.Kind), f.Description, f.Question)
	}
	_ = table.Render()
	return buf.String()
}

func formatValidationErrorsSection(errors map[string]string) string {
	if len(errors) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Previously rejected values:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Error")
	for field, msg := range errors {
		_ = table.Append(field, msg)
	}
	_ = table.Render()
	return buf.String()
}

func formatExtractionRequest(req Request) string {
	sections := []string{}
	if req.Expected != nil {
		sections = append(sections, fmt.Sprintf("# Pending question asked for field %q:\n%s", req.Expected.Name, req.Expected.Question))
	}
	if s := formatMissingFieldsSection(req.Missing); s != "" {
		sections = append(sections, s)
	}
	if s := formatValidationErrorsSection(req.ValidationErrors); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, fmt.Sprintf("# User message:\n%s", req.Message))
	return strings.Join(sections, "\n\n")
}
