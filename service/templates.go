package service

import (
	"fmt"
	"sort"
	"strings"

	"legaldraft-backend/models"
)

// promptTemplate holds the system and user prompts for a document type.
// User templates contain {variable} placeholders filled from request variables.
type promptTemplate struct {
	System    string
	User      string
	Variables []string
}

var promptTemplates = map[models.DocumentType]promptTemplate{
	models.DocTypeLoanAgreement: {
		System: "You are an expert legal drafter specializing in loan agreements. " +
			"Generate professional, legally sound loan agreements based on the provided information. " +
			"Ensure compliance with relevant laws and include all necessary clauses for enforceability.",
		User: `Draft a comprehensive Loan Agreement with the following details:

**PARTIES:**
- Lender: {lender_name}
- Borrower: {borrower_name}
- Lender Address: {lender_address}
- Borrower Address: {borrower_address}

**LOAN TERMS:**
- Principal Amount: {amount}
- Interest Rate: {interest_rate}% per annum
- Loan Term: {tenure} months
- Repayment Schedule: {repayment_frequency}
- Purpose of Loan: {purpose}
- Disbursement Date: {disbursement_date}

**ADDITIONAL TERMS:**
{additional_terms}

**JURISDICTION:** {jurisdiction}

**RELEVANT CLAUSES:**
{relevant_clauses}

**INSTRUCTIONS:**
1. Generate a complete, professionally formatted loan agreement
2. Include all standard clauses: Preamble, Definitions, Loan Terms, Interest, Repayment, Default, Representations & Warranties, Governing Law, Jurisdiction, Signatures
3. Use clear, unambiguous legal language
4. Include appropriate placeholders: [DATE], [PLACE], [SIGNATURE]
5. Ensure the document is ready for execution
6. Number all clauses and sub-clauses appropriately
7. Include a definitions section for key terms

**OUTPUT FORMAT:**
Return a JSON object with:
- title: Document title
- sections: List of sections, each with type, title, and content
- parties: List of parties with name and role`,
		Variables: []string{
			"lender_name", "borrower_name", "amount", "interest_rate",
			"tenure", "repayment_frequency", "purpose", "jurisdiction",
		},
	},
	models.DocTypeRentalAgreement: {
		System: "You are a legal expert specializing in rental and lease agreements. " +
			"Draft comprehensive rental agreements that protect both landlord and tenant interests.",
		User: `Draft a detailed Rental Agreement with:

**PROPERTY DETAILS:**
- Address: {property_address}
- Type: {property_type}
- Furnishing: {furnishing_status}

**PARTIES:**
- Landlord: {landlord_name}
- Tenant: {tenant_name}
- Landlord Address: {landlord_address}
- Tenant Address: {tenant_address}

**LEASE TERMS:**
- Monthly Rent: {rent_amount}
- Security Deposit: {security_deposit}
- Lease Term: {lease_term}
- Commencement Date: {start_date}
- Utilities Responsibility: {utilities_responsibility}
- Maintenance Responsibility: {maintenance_responsibility}

**SPECIAL CONDITIONS:**
{special_conditions}

**JURISDICTION:** {jurisdiction}

**RELEVANT CLAUSES:**
{relevant_clauses}

**INSTRUCTIONS:**
1. Include clauses for: Parties, Property Description, Term, Rent, Security Deposit, Maintenance, Utilities, Entry Rights, Termination, Renewal, Dispute Resolution
2. Add schedules for inventory and condition report
3. Include notice periods and procedures
4. Add landlord and tenant obligations

**OUTPUT FORMAT:**
Return a JSON object with:
- title: Document title
- sections: List of sections, each with type, title, and content
- parties: List of parties with name and role`,
		Variables: []string{
			"landlord_name", "tenant_name", "property_address", "rent_amount",
			"security_deposit", "lease_term", "start_date", "jurisdiction",
		},
	},
	models.DocTypeServiceAgreement: {
		System: "You are a legal professional drafting service agreements. " +
			"Create clear agreements that define scope, deliverables, and terms of service.",
		User: `Draft a Service Agreement with:

**SERVICE DETAILS:**
- Service Provider: {service_provider}
- Client: {client_name}
- Services: {services_description}
- Scope of Work: {scope_of_work}
- Deliverables: {deliverables}
- Timeline: {timeline}

**FINANCIAL TERMS:**
- Service Fee: {service_fee}
- Payment Terms: {payment_terms}
- Expenses: {expenses_handling}

**TERMS & CONDITIONS:**
- Term: {agreement_term}
- Termination: {termination_conditions}
- Confidentiality: {confidentiality_required}
- Intellectual Property: {ip_ownership}

**JURISDICTION:** {jurisdiction}

**RELEVANT CLAUSES:**
{relevant_clauses}

**INSTRUCTIONS:**
1. Include clauses for: Services, Compensation, Term, Termination, Confidentiality, IP, Liability, Insurance, Dispute Resolution
2. Define clear deliverables and acceptance criteria
3. Include change order procedures
4. Add force majeure clause

**OUTPUT FORMAT:**
Return a JSON object with:
- title: Document title
- sections: List of sections, each with type, title, and content
- parties: List of parties with name and role`,
		Variables: []string{
			"service_provider", "client_name", "services_description",
			"service_fee", "agreement_term", "jurisdiction",
		},
	},
	models.DocTypeNDA: {
		System: "You are drafting Non-Disclosure Agreements to protect confidential information. " +
			"Create balanced NDAs that protect interests while being fair to both parties.",
		User: `Draft a Mutual Non-Disclosure Agreement with:

**PARTIES:**
- Disclosing Party: {disclosing_party}
- Receiving Party: {receiving_party}

**CONFIDENTIAL INFORMATION:**
- Type of Information: {information_type}
- Purpose of Disclosure: {purpose}
- Exclusions: {exclusions}

**TERMS:**
- Term Duration: {term_duration}
- Return of Information: {return_provisions}
- Remedies: {remedies}

**JURISDICTION:** {jurisdiction}

**RELEVANT CLAUSES:**
{relevant_clauses}

**INSTRUCTIONS:**
1. Define confidential information clearly
2. Include obligations of receiving party
3. Specify exclusions from confidentiality
4. Include term and survival provisions
5. Add dispute resolution and governing law

**OUTPUT FORMAT:**
Return a JSON object with:
- title: Document title
- sections: List of sections, each with type, title, and content
- parties: List of parties with name and role`,
		Variables: []string{
			"disclosing_party", "receiving_party", "information_type",
			"purpose", "term_duration", "jurisdiction",
		},
	},
}

// defaultTemplate is used for document types without a dedicated template
var defaultTemplate = promptTemplate{
	System: "You are an expert legal drafter. Generate professional legal documents based on the user's requirements.",
	User: `Draft a legal document based on the following description:

{user_prompt}

**ADDITIONAL CONTEXT:**
Jurisdiction: {jurisdiction}
Variables: {variables}

**RELEVANT CLAUSES:**
{relevant_clauses}

**INSTRUCTIONS:**
1. Create a comprehensive legal document
2. Include appropriate sections and clauses
3. Use professional legal language
4. Include placeholders for signatures and dates
5. Ensure the document is structured properly

**OUTPUT FORMAT:**
Return a JSON object with:
- title: Document title
- sections: List of sections with type, title, and content
- parties: List of parties involved`,
	Variables: []string{"jurisdiction"},
}

// variableDefaults fills commonly missing template variables
var variableDefaults = map[string]string{
	"lender_address":             "[TO BE FILLED]",
	"borrower_address":           "[TO BE FILLED]",
	"property_type":              "[TO BE SPECIFIED]",
	"furnishing_status":          "[TO BE SPECIFIED]",
	"landlord_address":           "[TO BE FILLED]",
	"tenant_address":             "[TO BE FILLED]",
	"security_deposit":           "[TO BE SPECIFIED]",
	"lease_term":                 "[TO BE SPECIFIED]",
	"start_date":                 "[TO BE FILLED]",
	"utilities_responsibility":   "[TO BE SPECIFIED]",
	"maintenance_responsibility": "[TO BE SPECIFIED]",
	"special_conditions":         "[NONE SPECIFIED]",
	"repayment_frequency":        "Monthly",
	"purpose":                    "[TO BE SPECIFIED]",
	"disbursement_date":          "[TO BE FILLED]",
	"additional_terms":           "[NONE SPECIFIED]",
	"scope_of_work":              "[TO BE SPECIFIED]",
	"deliverables":               "[TO BE SPECIFIED]",
	"timeline":                   "[TO BE SPECIFIED]",
	"payment_terms":              "[TO BE SPECIFIED]",
	"expenses_handling":          "[TO BE SPECIFIED]",
	"termination_conditions":     "[TO BE SPECIFIED]",
	"confidentiality_required":   "[TO BE SPECIFIED]",
	"ip_ownership":               "[TO BE SPECIFIED]",
	"information_type":           "[TO BE SPECIFIED]",
	"exclusions":                 "[NONE SPECIFIED]",
	"term_duration":              "[TO BE SPECIFIED]",
	"return_provisions":          "[TO BE SPECIFIED]",
	"remedies":                   "[TO BE SPECIFIED]",
	"jurisdiction":               "IN",
	"relevant_clauses":           "No relevant clauses found in database.",
}

// templateForType returns the prompt template for a document type
func templateForType(docType models.DocumentType) promptTemplate {
	if tmpl, ok := promptTemplates[docType]; ok {
		return tmpl
	}
	return defaultTemplate
}

// DetectDocumentType infers a document type from prompt text using
// keyword matching. Returns DocTypeOther when nothing matches.
func DetectDocumentType(prompt string) models.DocumentType {
	lower := strings.ToLower(prompt)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("loan", "lender", "borrower", "interest rate"):
		return models.DocTypeLoanAgreement
	case contains("rent", "landlord", "tenant", "lease", "property"):
		return models.DocTypeRentalAgreement
	case contains("service", "provider", "client", "deliverables"):
		return models.DocTypeServiceAgreement
	case contains("nda", "non-disclosure", "confidential", "proprietary"):
		return models.DocTypeNDA
	case contains("employment", "employee", "employer", "salary"):
		return models.DocTypeEmploymentContract
	case contains("partnership", "partners", "business", "share"):
		return models.DocTypePartnershipDeed
	case contains("affidavit", "sworn", "declare", "oath"):
		return models.DocTypeAffidavit
	default:
		return models.DocTypeOther
	}
}

// buildPrompt fills a template with request variables, applying defaults for
// anything missing. If placeholders still remain after substitution, a
// generic fallback prompt is returned instead of a half-filled template.
func buildPrompt(
	docType models.DocumentType,
	variables map[string]string,
	userPrompt string,
	clauseContext string,
) (system, user string) {
	tmpl := templateForType(docType)

	vars := make(map[string]string, len(variables)+len(variableDefaults)+2)
	for k, v := range variableDefaults {
		vars[k] = v
	}
	for k, v := range variables {
		vars[k] = v
	}
	vars["user_prompt"] = userPrompt
	vars["variables"] = formatVariableList(variables)
	if clauseContext != "" {
		vars["relevant_clauses"] = clauseContext
	}

	filled := tmpl.User
	for k, v := range vars {
		filled = strings.ReplaceAll(filled, "{"+k+"}", v)
	}

	if strings.Contains(filled, "{") && strings.Contains(filled, "}") {
		return tmpl.System, fallbackPrompt(docType, variables, userPrompt, vars["relevant_clauses"])
	}

	return tmpl.System, filled
}

// fallbackPrompt builds a generic drafting prompt when a template cannot be
// fully filled from the provided variables
func fallbackPrompt(
	docType models.DocumentType,
	variables map[string]string,
	userPrompt string,
	clauseContext string,
) string {
	var builder strings.Builder

	docName := strings.ReplaceAll(string(docType), "_", " ")
	builder.WriteString(fmt.Sprintf("Draft a %s document based on:\n\n", docName))
	builder.WriteString(fmt.Sprintf("User Request: %s\n\n", userPrompt))

	builder.WriteString("Provided Information:\n")
	builder.WriteString(formatVariableList(variables))
	builder.WriteString("\n\n")

	jurisdiction := variables["jurisdiction"]
	if jurisdiction == "" {
		jurisdiction = "IN"
	}
	builder.WriteString(fmt.Sprintf("Jurisdiction: %s\n\n", jurisdiction))

	if clauseContext == "" {
		clauseContext = "None found"
	}
	builder.WriteString(fmt.Sprintf("Relevant Clauses:\n%s\n\n", clauseContext))

	builder.WriteString("Please generate a comprehensive legal document with appropriate sections and clauses.\n")
	builder.WriteString("Return a JSON object with title, sections (each with type, title, and content), and parties.")

	return builder.String()
}

// formatVariableList renders variables as sorted "- key: value" lines
func formatVariableList(variables map[string]string) string {
	if len(variables) == 0 {
		return "(none provided)"
	}

	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, variables[k]))
	}
	return strings.Join(lines, "\n")
}

// DocumentTypes returns metadata for all supported document types
func DocumentTypes() []models.DocumentTypeInfo {
	return []models.DocumentTypeInfo{
		{
			TypeID:         models.DocTypeLoanAgreement,
			Name:           "Loan Agreement",
			Description:    "Agreement between lender and borrower",
			RequiredFields: []string{"lender_name", "borrower_name", "amount", "interest_rate", "tenure"},
		},
		{
			TypeID:         models.DocTypeRentalAgreement,
			Name:           "Rental Agreement",
			Description:    "Agreement between landlord and tenant",
			RequiredFields: []string{"landlord_name", "tenant_name", "property_address", "rent_amount", "security_deposit"},
		},
		{
			TypeID:         models.DocTypeServiceAgreement,
			Name:           "Service Agreement",
			Description:    "Agreement for provision of services",
			RequiredFields: []string{"service_provider", "client_name", "services_description", "payment_terms"},
		},
		{
			TypeID:         models.DocTypeNDA,
			Name:           "Non-Disclosure Agreement",
			Description:    "Confidentiality agreement",
			RequiredFields: []string{"disclosing_party", "receiving_party", "information_type"},
		},
		{
			TypeID:         models.DocTypeEmploymentContract,
			Name:           "Employment Contract",
			Description:    "Contract between employer and employee",
			RequiredFields: []string{"employer", "employee", "position", "salary", "start_date"},
		},
		{
			TypeID:         models.DocTypePartnershipDeed,
			Name:           "Partnership Deed",
			Description:    "Agreement between business partners",
			RequiredFields: []string{"partners", "business_name", "capital_contribution", "profit_sharing"},
		},
		{
			TypeID:         models.DocTypeAffidavit,
			Name:           "Affidavit",
			Description:    "Sworn written statement",
			RequiredFields: []string{"affiant", "statement", "purpose"},
		},
	}
}
