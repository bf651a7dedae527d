package sources

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/models"
)

// SampleSource provides a fixed set of federal opportunities so the
// rest of the pipeline works without network access or API keys.
type SampleSource struct {
	log *zap.Logger
}

func NewSampleSource(log *zap.Logger) *SampleSource {
	return &SampleSource{log: log}
}

func (s *SampleSource) Name() string { return "Sample Opportunities" }

func (s *SampleSource) Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error) {
	s.log.Info("generating sample opportunities")
	now := time.Now()

	days := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}
	value := func(v float64) *float64 { return &v }

	opportunities := []models.BidOpportunity{
		{
			Title:          "Cybersecurity Assessment and Authorization Services",
			Description:    "The Department of Defense requires comprehensive cybersecurity assessment and authorization services including security control assessment, continuous monitoring, and risk management framework implementation. Services must include vulnerability scanning, penetration testing, and compliance reporting.",
			Agency:         "Department of Defense",
			OpportunityID:  "DOD-CYBER-2025-001",
			DueDate:        days(30),
			EstimatedValue: value(2500000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/DOD-CYBER-2025-001",
			Source:         "Sample Data",
		},
		{
			Title:          "IT Infrastructure Modernization and Cloud Migration",
			Description:    "The General Services Administration seeks a contractor to provide IT infrastructure modernization services including cloud migration, system administration, network security, and digital transformation consulting. Experience with AWS, Azure, and hybrid cloud environments required.",
			Agency:         "General Services Administration",
			OpportunityID:  "GSA-IT-2025-002",
			DueDate:        days(45),
			EstimatedValue: value(1800000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/GSA-IT-2025-002",
			Source:         "Sample Data",
		},
		{
			Title:          "Information Security Operations Center (SOC) Services",
			Description:    "The Department of Homeland Security requires 24/7 Security Operations Center services including threat monitoring, incident response, security information and event management (SIEM), and cybersecurity consulting. Must have experience with Splunk, CrowdStrike, and other enterprise security tools.",
			Agency:         "Department of Homeland Security",
			OpportunityID:  "DHS-SOC-2025-003",
			DueDate:        days(20),
			EstimatedValue: value(3200000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/DHS-SOC-2025-003",
			Source:         "Sample Data",
		},
		{
			Title:          "Penetration Testing and Vulnerability Assessment",
			Description:    "The Department of Veterans Affairs requires comprehensive penetration testing and vulnerability assessment services for their network infrastructure, web applications, and mobile applications. Services must include red team exercises, social engineering testing, and detailed remediation recommendations.",
			Agency:         "Department of Veterans Affairs",
			OpportunityID:  "VA-PENTEST-2025-004",
			DueDate:        days(25),
			EstimatedValue: value(850000),
			NaicsCodes:     []string{"541511"},
			URL:            "https://sam.gov/opp/VA-PENTEST-2025-004",
			Source:         "Sample Data",
		},
		{
			Title:          "Compliance and Risk Management Framework Implementation",
			Description:    "The Department of Health and Human Services seeks a contractor to implement NIST Cybersecurity Framework, FISMA compliance, and risk management framework (RMF) processes. Must have experience with healthcare IT security requirements and HIPAA compliance.",
			Agency:         "Department of Health and Human Services",
			OpportunityID:  "HHS-COMPLIANCE-2025-005",
			DueDate:        days(35),
			EstimatedValue: value(1200000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/HHS-COMPLIANCE-2025-005",
			Source:         "Sample Data",
		},
		{
			Title:          "Network Security and Firewall Management",
			Description:    "The Department of Energy requires network security services including firewall management, intrusion detection and prevention, network monitoring, and security architecture design. Experience with Palo Alto Networks, Cisco, and enterprise network security required.",
			Agency:         "Department of Energy",
			OpportunityID:  "DOE-NETSEC-2025-006",
			DueDate:        days(40),
			EstimatedValue: value(1500000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/DOE-NETSEC-2025-006",
			Source:         "Sample Data",
		},
		{
			Title:          "Software Development and Application Security",
			Description:    "The Department of Agriculture requires software development services with a focus on application security, secure coding practices, and DevSecOps implementation. Must have experience with modern development frameworks, containerization, and application security testing.",
			Agency:         "Department of Agriculture",
			OpportunityID:  "USDA-DEV-2025-008",
			DueDate:        days(50),
			EstimatedValue: value(2100000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/USDA-DEV-2025-008",
			Source:         "Sample Data",
		},
		{
			Title:          "Incident Response and Digital Forensics",
			Description:    "The Department of Justice requires incident response and digital forensics services including malware analysis, evidence collection, forensic imaging, and incident investigation. Must have experience with enterprise incident response tools and legal evidence handling procedures.",
			Agency:         "Department of Justice",
			OpportunityID:  "DOJ-IR-2025-009",
			DueDate:        days(15),
			EstimatedValue: value(750000),
			NaicsCodes:     []string{"541511"},
			URL:            "https://sam.gov/opp/DOJ-IR-2025-009",
			Source:         "Sample Data",
		},
		{
			Title:          "Cloud Security Architecture and Implementation",
			Description:    "The Department of Commerce seeks a contractor to design and implement cloud security architecture for their AWS and Azure environments. Services must include cloud security assessment, configuration management, and compliance monitoring.",
			Agency:         "Department of Commerce",
			OpportunityID:  "DOC-CLOUD-2025-010",
			DueDate:        days(42),
			EstimatedValue: value(1800000),
			NaicsCodes:     []string{"541511", "541512"},
			URL:            "https://sam.gov/opp/DOC-CLOUD-2025-010",
			Source:         "Sample Data",
		},
	}

	if len(keywords) == 0 {
		return opportunities, nil
	}
	return classify.FilterRelevant(opportunities, keywords), nil
}

// UgandaSampleSource seeds Ugandan jobs and tenders, giving immediate
// regional coverage without relying on brittle HTML selectors.
type UgandaSampleSource struct {
	log *zap.Logger
}

func NewUgandaSampleSource(log *zap.Logger) *UgandaSampleSource {
	return &UgandaSampleSource{log: log}
}

func (s *UgandaSampleSource) Name() string { return "Uganda (Sample Jobs & Tenders)" }

func (s *UgandaSampleSource) Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error) {
	s.log.Info("generating sample Uganda opportunities")
	now := time.Now()
	stamp := now.Format("20060102150405")

	days := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}

	samples := []models.BidOpportunity{
		{
			Title:         "ICT Support Specialist (Kampala, Remote-First)",
			Description:   "Provide IT support, network administration, and helpdesk services for a distributed team in Uganda.",
			Agency:        "Uganda Tech Services Ltd.",
			OpportunityID: fmt.Sprintf("UG-ICT-%s", stamp),
			DueDate:       days(21),
			URL:           "https://example.ug/jobs/ict-support",
			Source:        "Uganda Sample",
		},
		{
			Title:         "Government Tender: Network Upgrade for Municipal Offices",
			Description:   "Supply and install network equipment, secure Wi-Fi, and provide maintenance SLA for municipal offices.",
			Agency:        "Kampala Capital City Authority",
			OpportunityID: fmt.Sprintf("UG-TENDER-NET-%s", stamp),
			DueDate:       days(28),
			NaicsCodes:    []string{"541512"},
			URL:           "https://example.ug/tenders/network-upgrade",
			Source:        "Uganda Sample",
		},
		{
			Title:         "Software Developer - Public Health Reporting System",
			Description:   "Build and maintain a reporting platform with data analytics dashboards for regional health centers.",
			Agency:        "Ministry of Health Uganda",
			OpportunityID: fmt.Sprintf("UG-SW-%s", stamp),
			DueDate:       days(30),
			NaicsCodes:    []string{"541511"},
			URL:           "https://example.ug/jobs/health-software",
			Source:        "Uganda Sample",
		},
	}

	if len(keywords) == 0 {
		return samples, nil
	}
	return classify.FilterRelevant(samples, keywords), nil
}
