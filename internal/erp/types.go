package erp

// Company is the ERP company document created for a tenant.
type Company struct {
	CompanyName         string `json:"company_name"`
	Abbr                string `json:"abbr,omitempty"`
	DefaultCurrency     string `json:"default_currency,omitempty"`
	Country             string `json:"country,omitempty"`
	TaxID               string `json:"tax_id,omitempty"`
	Domain              string `json:"domain,omitempty"`
	DateOfEstablishment string `json:"date_of_establishment,omitempty"`
}

type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Enabled   int    `json:"enabled"`
}

type Employee struct {
	EmployeeName   string `json:"employee_name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"date_of_birth"`
	DateOfJoining  string `json:"date_of_joining"`
	Company        string `json:"company"`
	EmploymentType string `json:"employment_type"`
}

type UserPermission struct {
	User               string `json:"user"`
	Allow              string `json:"allow"`
	ForValue           string `json:"for_value"`
	ApplyToAllDoctypes int    `json:"apply_to_all_doctypes"`
}

// Plan is the ERP-side entitlement record of a billing plan.
type Plan struct {
	Name        string   `json:"name,omitempty"`
	PlanName    string   `json:"plan_name"`
	Price       float64  `json:"cost"`
	Currency    string   `json:"currency,omitempty"`
	Interval    string   `json:"billing_interval,omitempty"`
	ProductID   string   `json:"product_price_id,omitempty"`
	Features    []string `json:"custom_features,omitempty"`
	AccessRoles []string `json:"custom_access_roles,omitempty"`
	MaxUsers    int      `json:"custom_max_users"`
	MaxQuotes   int      `json:"custom_max_quotations"`
	MaxInvoices int      `json:"custom_max_invoices"`
	MaxSupplier int      `json:"custom_max_suppliers"`
	MaxCustomer int      `json:"custom_max_customers"`
}
