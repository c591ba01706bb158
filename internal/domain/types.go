// Package domain holds the finance entities shared by storage, services and
// the HTTP API. Every owned entity carries the UserID of its owner.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a money movement.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

// TransactionSource records how a transaction entered the system.
type TransactionSource string

const (
	SourceManual TransactionSource = "manual"
	SourceImport TransactionSource = "import"
	SourceBill   TransactionSource = "bill"
)

// User is the profile row for an authenticated identity.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Currency       string    `json:"currency"`
	Theme          string    `json:"theme"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountType classifies accounts.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountCash       AccountType = "cash"
	AccountInvestment AccountType = "investment"
	AccountLoan       AccountType = "loan"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountCash, AccountInvestment, AccountLoan:
		return true
	}
	return false
}

// IsLiability reports whether a positive balance on this account is money owed.
func (t AccountType) IsLiability() bool {
	return t == AccountCredit || t == AccountLoan
}

// Account is a bank, cash, credit or investment account.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Category groups transactions. UserID is empty for system defaults.
type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Icon      string          `json:"icon,omitempty"`
	Color     string          `json:"color,omitempty"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
}

// Transaction is a single income, expense or transfer.
type Transaction struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	AccountID      *string           `json:"account_id,omitempty"`
	ToAccountID    *string           `json:"to_account_id,omitempty"`
	CategoryID     *string           `json:"category_id,omitempty"`
	CategoryName   string            `json:"category_name,omitempty"`
	FamilyMemberID *string           `json:"family_member_id,omitempty"`
	Type           TransactionType   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Description    string            `json:"description"`
	Merchant       string            `json:"merchant,omitempty"`
	OccurredOn     time.Time         `json:"occurred_on"`
	Notes          string            `json:"notes,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	AICategorized  bool              `json:"ai_categorized"`
	Source         TransactionSource `json:"source"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// BudgetPeriod is the window a budget amount applies to.
type BudgetPeriod string

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetWeekly, BudgetMonthly, BudgetYearly:
		return true
	}
	return false
}

// Budget caps spending for a category (or overall when CategoryID is nil).
type Budget struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CategoryID     *string         `json:"category_id,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Period         BudgetPeriod    `json:"period"`
	AlertThreshold int             `json:"alert_threshold"`
	StartDate      time.Time       `json:"start_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BillFrequency controls how a paid bill rolls forward.
type BillFrequency string

const (
	BillOnce      BillFrequency = "once"
	BillWeekly    BillFrequency = "weekly"
	BillMonthly   BillFrequency = "monthly"
	BillQuarterly BillFrequency = "quarterly"
	BillYearly    BillFrequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f BillFrequency) Valid() bool {
	switch f {
	case BillOnce, BillWeekly, BillMonthly, BillQuarterly, BillYearly:
		return true
	}
	return false
}

// Next returns the due date following due for a recurring frequency.
// For BillOnce it returns due unchanged and false.
func (f BillFrequency) Next(due time.Time) (time.Time, bool) {
	switch f {
	case BillWeekly:
		return due.AddDate(0, 0, 7), true
	case BillMonthly:
		return addMonthsClamped(due, 1), true
	case BillQuarterly:
		return addMonthsClamped(due, 3), true
	case BillYearly:
		return addMonthsClamped(due, 12), true
	}
	return due, false
}

// addMonthsClamped adds months without overflowing into the following month,
// so Jan 31 + 1 month is Feb 28/29 rather than Mar 2/3.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Bill is a recurring or one-off payment reminder.
type Bill struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        time.Time       `json:"due_date"`
	Frequency      BillFrequency   `json:"frequency"`
	CategoryID     *string         `json:"category_id,omitempty"`
	AccountID      *string         `json:"account_id,omitempty"`
	ReminderDays   int             `json:"reminder_days"`
	IsPaid         bool            `json:"is_paid"`
	LastPaidOn     *time.Time      `json:"last_paid_on,omitempty"`
	LastRemindedOn *time.Time      `json:"last_reminded_on,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FamilyMember is a household member transactions can be attributed to.
type FamilyMember struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Name             string           `json:"name"`
	Relationship     string           `json:"relationship"`
	MonthlyAllowance *decimal.Decimal `json:"monthly_allowance,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// StockHolding is a position in a listed security.
type StockHolding struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PurchaseDate  *time.Time      `json:"purchase_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MarketValue is shares times current price.
func (s StockHolding) MarketValue() decimal.Decimal {
	return s.Shares.Mul(s.CurrentPrice)
}

// CryptoHolding is a cryptocurrency position identified by its CoinGecko id.
type CryptoHolding struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CoinID         string          `json:"coin_id"`
	Symbol         string          `json:"symbol"`
	Amount         decimal.Decimal `json:"amount"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceUpdatedAt *time.Time      `json:"price_updated_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MarketValue is amount times current price.
func (c CryptoHolding) MarketValue() decimal.Decimal {
	return c.Amount.Mul(c.CurrentPrice)
}

// Metal names a precious metal.
type Metal string

const (
	MetalGold      Metal = "gold"
	MetalSilver    Metal = "silver"
	MetalPlatinum  Metal = "platinum"
	MetalPalladium Metal = "palladium"
)

// Valid reports whether m is a supported metal.
func (m Metal) Valid() bool {
	switch m {
	case MetalGold, MetalSilver, MetalPlatinum, MetalPalladium:
		return true
	}
	return false
}

// MetalHolding is a quantity of a precious metal measured in grams.
type MetalHolding struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Metal                Metal           `json:"metal"`
	WeightGrams          decimal.Decimal `json:"weight_grams"`
	PurchasePricePerGram decimal.Decimal `json:"purchase_price_per_gram"`
	CurrentPricePerGram  decimal.Decimal `json:"current_price_per_gram"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// MarketValue is weight times current price per gram.
func (m MetalHolding) MarketValue() decimal.Decimal {
	return m.WeightGrams.Mul(m.CurrentPricePerGram)
}

// NotificationKind classifies notifications.
type NotificationKind string

const (
	NotificationBillReminder NotificationKind = "bill_reminder"
	NotificationBudgetAlert  NotificationKind = "budget_alert"
	NotificationSystem       NotificationKind = "system"
	NotificationImport       NotificationKind = "import"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	IsRead    bool             `json:"is_read"`
	Link      string           `json:"link,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Activity is one entry of the user's audit trail.
type Activity struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type,omitempty"`
	EntityID   string          `json:"entity_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the AI advisor conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportStatus tracks a statement import.
type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// Import is an uploaded statement and the outcome of parsing it.
type Import struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"`
	ObjectURI           string       `json:"object_uri"`
	OriginalFilename    string       `json:"original_filename"`
	MimeType            string       `json:"mime_type"`
	Status              ImportStatus `json:"status"`
	JobID               string       `json:"job_id,omitempty"`
	TransactionsCreated int          `json:"transactions_created"`
	Error               string       `json:"error,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
