// Package profile turns a folder of company documents into the
// capability profile the matching engine scores against.
package profile

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	rpdf "rsc.io/pdf"
)

// ProcessedDocument is one company document reduced to plain text plus
// the keyword and section signals the profile builder aggregates.
type ProcessedDocument struct {
	Filename          string
	FileType          string
	Content           string
	CompanyName       string
	ExtractedKeywords []string
	Sections          map[string]string
}

var technicalKeywords = []string{
	"cybersecurity", "information security", "IT services", "software development",
	"network security", "cloud computing", "data protection", "risk assessment",
	"compliance", "penetration testing", "vulnerability assessment", "incident response",
	"security operations center", "SOC", "SIEM", "firewall", "encryption",
	"authentication", "authorization", "access control", "monitoring", "logging",
}

var certificationKeywords = []string{
	"certified", "certification", "ISO", "CMMI", "ITIL", "PMP",
	"CISSP", "CISM", "CISA", "CEH", "Security+",
}

var experienceKeywords = []string{
	"experience", "years", "implemented", "managed", "developed", "designed",
	"architected", "deployed", "maintained", "supported", "delivered",
}

var companyNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Company\s+Profile\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Company\s*Name\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Company\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Organization\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i)Firm\s*:\s*([^\n]+)`),
}

var sectionPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"executive_summary", regexp.MustCompile(`(?i)(executive\s+summary|summary)`)},
	{"company_overview", regexp.MustCompile(`(?i)(company\s+overview|about\s+us|organization)`)},
	{"technical_capabilities", regexp.MustCompile(`(?i)(technical\s+capabilities|capabilities|services)`)},
	{"experience", regexp.MustCompile(`(?i)(experience|past\s+performance|project\s+history)`)},
	{"certifications", regexp.MustCompile(`(?i)(certifications|certificates|credentials)`)},
	{"team", regexp.MustCompile(`(?i)(team|personnel|staff|key\s+personnel)`)},
	{"methodology", regexp.MustCompile(`(?i)(methodology|approach|process)`)},
}

// Processor extracts text from the supported document types under one
// folder. Unsupported or unreadable files are logged and skipped.
type Processor struct {
	log *zap.Logger
}

func NewProcessor(log *zap.Logger) *Processor {
	return &Processor{log: log}
}

// ProcessDir walks the folder and processes every supported file.
func (p *Processor) ProcessDir(dir string) []ProcessedDocument {
	var docs []ProcessedDocument
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !supportedFile(path) {
			return nil
		}
		doc, err := p.ProcessFile(path)
		if err != nil {
			p.log.Error("document processing failed", zap.String("file", path), zap.Error(err))
			return nil
		}
		docs = append(docs, doc)
		p.log.Info("processed document", zap.String("file", entry.Name()))
		return nil
	})
	if err != nil {
		p.log.Warn("documents folder walk failed", zap.String("dir", dir), zap.Error(err))
	}
	p.log.Info("document processing complete", zap.Int("documents", len(docs)))
	return docs
}

// ProcessFile extracts one document into its text and signals.
func (p *Processor) ProcessFile(path string) (ProcessedDocument, error) {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	var content string
	var err error
	switch fileType {
	case "pdf":
		content, err = extractPDFContent(path)
	case "txt", "md":
		content, err = extractTextContent(path)
	default:
		return ProcessedDocument{}, fmt.Errorf("unsupported file type %q", fileType)
	}
	if err != nil {
		return ProcessedDocument{}, fmt.Errorf("extract %s: %w", path, err)
	}
	if strings.TrimSpace(content) == "" {
		return ProcessedDocument{}, fmt.Errorf("no content extracted from %s", path)
	}

	return ProcessedDocument{
		Filename:          filepath.Base(path),
		FileType:          fileType,
		Content:           content,
		CompanyName:       extractCompanyName(content),
		ExtractedKeywords: extractKeywords(content),
		Sections:          extractSections(content),
	}, nil
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

func extractTextContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractPDFContent(path string) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	reader, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func extractCompanyName(content string) string {
	for _, pattern := range companyNamePatterns {
		match := pattern.FindStringSubmatch(content)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		if lower := strings.ToLower(name); strings.HasPrefix(lower, "profile:") {
			name = strings.TrimSpace(name[len("profile:"):])
		}
		if name != "" {
			return name
		}
	}
	return ""
}

func extractKeywords(content string) []string {
	lower := strings.ToLower(content)
	var found []string
	for _, list := range [][]string{technicalKeywords, certificationKeywords, experienceKeywords} {
		for _, keyword := range list {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				found = append(found, keyword)
			}
		}
	}
	return found
}

func extractSections(content string) map[string]string {
	sections := make(map[string]string)
	currentSection := ""
	var currentLines []string

	flush := func() {
		if currentSection != "" && len(currentLines) > 0 {
			sections[currentSection] = strings.Join(currentLines, "\n")
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matched := false
		for _, sp := range sectionPatterns {
			if sp.pattern.MatchString(line) {
				flush()
				currentSection = sp.name
				currentLines = []string{line}
				matched = true
				break
			}
		}
		if !matched && currentSection != "" {
			currentLines = append(currentLines, line)
		}
	}
	flush()
	return sections
}
