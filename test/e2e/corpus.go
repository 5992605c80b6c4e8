package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// QueryTestCase is a question and the chunk that must rank first for it.
type QueryTestCase struct {
	Query         string
	ExpectedFile  string
	ExpectedLabel string
	Description   string
}

// CorpusFile is one generated document.
type CorpusFile struct {
	Name    string
	Content func() ([]byte, error)
}

// Corpus is a small company knowledge base: procedure documents, an FAQ sheet, a slide
// deck, and a markdown note, with questions whose answers live in exactly one chunk.
type Corpus struct {
	Files     []CorpusFile
	TestCases []QueryTestCase
	// Chunks is the number of chunks the files are expected to produce.
	Chunks int
}

var handbookSections = []Section{
	{Heading: "Requesting Vacation", Paragraphs: []string{
		"Submit a vacation request to your manager two weeks before the vacation days begin.",
	}},
	{Heading: "Sick Leave Reporting", Paragraphs: []string{
		"Report sick leave to your supervisor before your shift starts.",
		"A doctor's note is required after three consecutive sick days.",
	}},
	{Heading: "Remote Work Eligibility", Paragraphs: []string{
		"Employees may work remotely two days per week after completing probation.",
	}},
}

var itSections = []Section{
	{Heading: "VPN Setup", Paragraphs: []string{
		"Install the VPN client, then sign in with your corporate credentials and approve the MFA prompt.",
	}},
	{Heading: "Password Reset", Paragraphs: []string{
		"Reset a forgotten password from the self-service portal using your registered phone number.",
	}},
	{Heading: "Laptop Replacement", Paragraphs: []string{
		"Broken laptops are replaced by the helpdesk within three business days of the ticket.",
	}},
}

var faqRows = [][]string{
	{"Topic", "Question", "Answer", "Resource Link"},
	{"Finance", "How do I submit expense receipts?", "Upload expense receipts to the finance portal within thirty days.", "https://intranet.example/finance"},
	{"Payroll", "When is payroll deposited?", "Payroll is deposited on the fifteenth and last business day of each month.", ""},
	{"Facilities", "Where do I collect a parking permit?", "Collect parking permits from the facilities desk in the lobby.", "https://intranet.example/parking"},
}

var onboardingSlides = [][]string{
	{"First Day Checklist", "Collect your badge from security and attend the orientation session at nine."},
	{"Benefits Enrollment", "Enroll in health insurance benefits within thirty days of your start date."},
}

const securityNote = "# Visitor Badges\n\nVisitors must sign the visitor log and wear a visitor badge at all times.\n"

// BuildCorpus returns the company corpus.
func BuildCorpus() *Corpus {
	c := &Corpus{
		Files: []CorpusFile{
			{Name: "sops/employee-handbook.docx", Content: func() ([]byte, error) { return SOPDocx(handbookSections), nil }},
			{Name: "sops/it-guide.docx", Content: func() ([]byte, error) { return SOPDocx(itSections), nil }},
			{Name: "faq.xlsx", Content: func() ([]byte, error) { return Workbook("FAQ", faqRows) }},
			{Name: "onboarding.pptx", Content: func() ([]byte, error) { return Pptx(onboardingSlides), nil }},
			{Name: "security.md", Content: func() ([]byte, error) { return []byte(securityNote), nil }},
		},
		Chunks: len(handbookSections) + len(itSections) + len(faqRows) - 1 + len(onboardingSlides) + 1,
	}
	c.TestCases = []QueryTestCase{
		{"how do I request vacation days from my manager", "sops/employee-handbook.docx", "Requesting Vacation", "bold heading section"},
		{"is a doctor's note required for sick days", "sops/employee-handbook.docx", "Sick Leave Reporting", "multi-paragraph section"},
		{"can employees work remotely after probation", "sops/employee-handbook.docx", "Remote Work Eligibility", "section in first file"},
		{"how to install the VPN client with MFA", "sops/it-guide.docx", "VPN Setup", "second docx"},
		{"reset forgotten password self-service portal", "sops/it-guide.docx", "Password Reset", "second docx"},
		{"broken laptop replaced by helpdesk", "sops/it-guide.docx", "Laptop Replacement", "second docx"},
		{"submit expense receipts", "faq.xlsx", "How do I submit expense receipts?", "FAQ row labeled by question"},
		{"when is payroll deposited each month", "faq.xlsx", "When is payroll deposited?", "FAQ row without link"},
		{"collect parking permit facilities desk", "faq.xlsx", "Where do I collect a parking permit?", "FAQ row"},
		{"enroll in health insurance benefits", "onboarding.pptx", "Benefits Enrollment", "slide heading"},
		{"visitor badge and visitor log", "security.md", "Visitor Badges", "markdown heading"},
	}
	return c
}

// WriteTo materializes the corpus under dir, creating subdirectories as needed.
func (c *Corpus) WriteTo(dir string) error {
	for _, f := range c.Files {
		content, err := f.Content()
		if err != nil {
			return fmt.Errorf("generate %s: %w", f.Name, err)
		}
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			return err
		}
	}
	return nil
}

// Labels returns every expected section label, keyed by file.
func (c *Corpus) Labels() map[string][]string {
	labels := make(map[string][]string)
	for _, s := range handbookSections {
		labels["sops/employee-handbook.docx"] = append(labels["sops/employee-handbook.docx"], s.Heading)
	}
	for _, s := range itSections {
		labels["sops/it-guide.docx"] = append(labels["sops/it-guide.docx"], s.Heading)
	}
	for _, row := range faqRows[1:] {
		labels["faq.xlsx"] = append(labels["faq.xlsx"], row[1])
	}
	for _, slide := range onboardingSlides {
		labels["onboarding.pptx"] = append(labels["onboarding.pptx"], slide[0])
	}
	heading := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(securityNote, "\n", 2)[0], "#"))
	labels["security.md"] = []string{heading}
	return labels
}
