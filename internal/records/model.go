package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SyncStatus is the per-row synchronization state. It is stored as text.
type SyncStatus string

const (
	// SyncPending marks a local mutation awaiting upload.
	SyncPending SyncStatus = "PENDING"
	// SyncSyncing marks an upload attempt in flight.
	SyncSyncing SyncStatus = "SYNCING"
	// SyncSynced marks a row the remote has acknowledged.
	SyncSynced SyncStatus = "SYNCED"
	// SyncFailed marks a row whose last upload failed; it is eligible for retry.
	SyncFailed SyncStatus = "FAILED"
)

// ErrInvalidSyncStatus indicates text that is not one of the known states.
var ErrInvalidSyncStatus = errors.New("records: invalid sync status")

// ParseSyncStatus validates raw text and returns the matching state.
func ParseSyncStatus(raw string) (SyncStatus, error) {
	switch status := SyncStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case SyncPending, SyncSyncing, SyncSynced, SyncFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSyncStatus, raw)
	}
}

// NeedsSync reports whether the row belongs in the outbound queue.
func (s SyncStatus) NeedsSync() bool {
	return s == SyncPending || s == SyncFailed
}

func (s SyncStatus) String() string {
	return string(s)
}

// NowMillis converts t to the millisecond clock used by lastModified.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// SyncTrailer holds the columns every synchronizable table carries.
type SyncTrailer struct {
	ServerID     *string    `gorm:"column:serverId" json:"serverId" yaml:"serverId"`
	LastModified int64      `gorm:"column:lastModified;not null" json:"lastModified" yaml:"lastModified"`
	SyncStatus   SyncStatus `gorm:"column:syncStatus;not null" json:"syncStatus" yaml:"syncStatus"`
}

// Touch records a content change at nowMillis. lastModified never moves
// backwards and the row returns to PENDING.
func (t *SyncTrailer) Touch(nowMillis int64) {
	if nowMillis > t.LastModified {
		t.LastModified = nowMillis
	}
	t.SyncStatus = SyncPending
}

// IsSynced reports whether the remote acknowledged the current version.
func (t SyncTrailer) IsSynced() bool {
	return t.SyncStatus == SyncSynced
}

// NeedsSync reports whether the row awaits upload.
func (t SyncTrailer) NeedsSync() bool {
	return t.SyncStatus.NeedsSync()
}

// ServerIDValue returns the server id or the empty string when unassigned.
func (t SyncTrailer) ServerIDValue() string {
	if t.ServerID == nil {
		return ""
	}
	return *t.ServerID
}

// Trailer exposes the embedded trailer for generic sync code.
func (t *SyncTrailer) Trailer() *SyncTrailer {
	return t
}

// Customer is a shop customer. (firstName, lastName, mobile) is unique.
type Customer struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id"`
	FirstName       string `gorm:"column:firstName;not null" json:"firstName" yaml:"firstName"`
	LastName        string `gorm:"column:lastName;not null" json:"lastName" yaml:"lastName"`
	Address         string `gorm:"column:address;not null" json:"address" yaml:"address"`
	Mobile          string `gorm:"column:mobile;not null" json:"mobile" yaml:"mobile"`
	AlternateMobile string `gorm:"column:alternateMobile;not null" json:"alternateMobile" yaml:"alternateMobile"`
	BirthDate       string `gorm:"column:birthDate;not null" json:"birthDate" yaml:"birthDate"`
	SyncTrailer     `yaml:",inline"`
}

// TableName provides the explicit table binding for GORM.
func (Customer) TableName() string {
	return "customers"
}

// FullName joins first and last name for display.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Measurement stores free-form body measurements for one customer. Values are
// kept exactly as entered; units vary by shop.
type Measurement struct {
	ID         int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id"`
	CustomerID int64 `gorm:"column:customerId;not null" json:"customerId" yaml:"customerId"`

	// Kurti
	KurtiLength               string `gorm:"column:kurtiLength;not null" json:"kurtiLength" yaml:"kurtiLength"`
	FullShoulder              string `gorm:"column:fullShoulder;not null" json:"fullShoulder" yaml:"fullShoulder"`
	UpperChestRound           string `gorm:"column:upperChestRound;not null" json:"upperChestRound" yaml:"upperChestRound"`
	ChestRound                string `gorm:"column:chestRound;not null" json:"chestRound" yaml:"chestRound"`
	WaistRound                string `gorm:"column:waistRound;not null" json:"waistRound" yaml:"waistRound"`
	ShoulderToApex            string `gorm:"column:shoulderToApex;not null" json:"shoulderToApex" yaml:"shoulderToApex"`
	ApexToApex                string `gorm:"column:apexToApex;not null" json:"apexToApex" yaml:"apexToApex"`
	ShoulderToLowChestLength  string `gorm:"column:shoulderToLowChestLength;not null" json:"shoulderToLowChestLength" yaml:"shoulderToLowChestLength"`
	SkapLength                string `gorm:"column:skapLength;not null" json:"skapLength" yaml:"skapLength"`
	SkapLengthRound           string `gorm:"column:skapLengthRound;not null" json:"skapLengthRound" yaml:"skapLengthRound"`
	HipRound                  string `gorm:"column:hipRound;not null" json:"hipRound" yaml:"hipRound"`
	FrontNeckDeep             string `gorm:"column:frontNeckDeep;not null" json:"frontNeckDeep" yaml:"frontNeckDeep"`
	FrontNeckWidth            string `gorm:"column:frontNeckWidth;not null" json:"frontNeckWidth" yaml:"frontNeckWidth"`
	BackNeckDeep              string `gorm:"column:backNeckDeep;not null" json:"backNeckDeep" yaml:"backNeckDeep"`
	ReadyShoulder             string `gorm:"column:readyShoulder;not null" json:"readyShoulder" yaml:"readyShoulder"`
	SleevesHeightShort        string `gorm:"column:sleevesHeightShort;not null" json:"sleevesHeightShort" yaml:"sleevesHeightShort"`
	SleevesHeightElbow        string `gorm:"column:sleevesHeightElbow;not null" json:"sleevesHeightElbow" yaml:"sleevesHeightElbow"`
	SleevesHeightThreeQuarter string `gorm:"column:sleevesHeightThreeQuarter;not null" json:"sleevesHeightThreeQuarter" yaml:"sleevesHeightThreeQuarter"`
	SleevesRound              string `gorm:"column:sleevesRound;not null" json:"sleevesRound" yaml:"sleevesRound"`

	// Pant
	PantWaist  string `gorm:"column:pantWaist;not null" json:"pantWaist" yaml:"pantWaist"`
	PantLength string `gorm:"column:pantLength;not null" json:"pantLength" yaml:"pantLength"`
	PantHip    string `gorm:"column:pantHip;not null" json:"pantHip" yaml:"pantHip"`
	PantBottom string `gorm:"column:pantBottom;not null" json:"pantBottom" yaml:"pantBottom"`

	// Blouse
	BlouseLength                    string `gorm:"column:blouseLength;not null" json:"blouseLength" yaml:"blouseLength"`
	BlouseFullShoulder              string `gorm:"column:blouseFullShoulder;not null" json:"blouseFullShoulder" yaml:"blouseFullShoulder"`
	BlouseChest                     string `gorm:"column:blouseChest;not null" json:"blouseChest" yaml:"blouseChest"`
	BlouseWaist                     string `gorm:"column:blouseWaist;not null" json:"blouseWaist" yaml:"blouseWaist"`
	BlouseShoulderToApex            string `gorm:"column:blouseShoulderToApex;not null" json:"blouseShoulderToApex" yaml:"blouseShoulderToApex"`
	BlouseApexToApex                string `gorm:"column:blouseApexToApex;not null" json:"blouseApexToApex" yaml:"blouseApexToApex"`
	BlouseBackLength                string `gorm:"column:blouseBackLength;not null" json:"blouseBackLength" yaml:"blouseBackLength"`
	BlouseFrontNeckDeep             string `gorm:"column:blouseFrontNeckDeep;not null" json:"blouseFrontNeckDeep" yaml:"blouseFrontNeckDeep"`
	BlouseFrontNeckWidth            string `gorm:"column:blouseFrontNeckWidth;not null" json:"blouseFrontNeckWidth" yaml:"blouseFrontNeckWidth"`
	BlouseBackNeckDeep              string `gorm:"column:blouseBackNeckDeep;not null" json:"blouseBackNeckDeep" yaml:"blouseBackNeckDeep"`
	BlouseReadyShoulder             string `gorm:"column:blouseReadyShoulder;not null" json:"blouseReadyShoulder" yaml:"blouseReadyShoulder"`
	BlouseSleevesHeightShort        string `gorm:"column:blouseSleevesHeightShort;not null" json:"blouseSleevesHeightShort" yaml:"blouseSleevesHeightShort"`
	BlouseSleevesHeightElbow        string `gorm:"column:blouseSleevesHeightElbow;not null" json:"blouseSleevesHeightElbow" yaml:"blouseSleevesHeightElbow"`
	BlouseSleevesHeightThreeQuarter string `gorm:"column:blouseSleevesHeightThreeQuarter;not null" json:"blouseSleevesHeightThreeQuarter" yaml:"blouseSleevesHeightThreeQuarter"`
	BlouseSleevesRound              string `gorm:"column:blouseSleevesRound;not null" json:"blouseSleevesRound" yaml:"blouseSleevesRound"`
	BlouseHookOn                    string `gorm:"column:blouseHookOn;not null" json:"blouseHookOn" yaml:"blouseHookOn"`

	LastUpdated int64 `gorm:"column:lastUpdated;not null" json:"lastUpdated" yaml:"lastUpdated"`
	SyncTrailer `yaml:",inline"`
}

// TableName provides the explicit table binding for GORM.
func (Measurement) TableName() string {
	return "measurements"
}

// Hook positions for blouses.
const (
	HookLeft  = "left"
	HookRight = "right"
)

// Touch records a content change, advancing both lastUpdated and lastModified.
func (m *Measurement) Touch(nowMillis int64) {
	if nowMillis > m.LastUpdated {
		m.LastUpdated = nowMillis
	}
	m.SyncTrailer.Touch(nowMillis)
}

func (m Measurement) kurtiValues() []string {
	return []string{
		m.KurtiLength, m.FullShoulder, m.UpperChestRound, m.ChestRound, m.WaistRound,
		m.ShoulderToApex, m.ApexToApex, m.ShoulderToLowChestLength, m.SkapLength,
		m.SkapLengthRound, m.HipRound, m.FrontNeckDeep, m.FrontNeckWidth,
		m.BackNeckDeep, m.ReadyShoulder, m.SleevesHeightShort, m.SleevesHeightElbow,
		m.SleevesHeightThreeQuarter, m.SleevesRound,
	}
}

// HasKurti reports whether any leading kurti measurement was taken.
func (m Measurement) HasKurti() bool {
	return anyFilled(m.KurtiLength, m.FullShoulder, m.UpperChestRound, m.ChestRound, m.WaistRound)
}

// HasPant reports whether any pant measurement was taken.
func (m Measurement) HasPant() bool {
	return anyFilled(m.PantWaist, m.PantLength, m.PantHip, m.PantBottom)
}

// HasBlouse reports whether any leading blouse measurement was taken.
func (m Measurement) HasBlouse() bool {
	return anyFilled(m.BlouseLength, m.BlouseFullShoulder, m.BlouseChest, m.BlouseWaist)
}

// HasAny reports whether any garment has measurements.
func (m Measurement) HasAny() bool {
	return m.HasKurti() || m.HasPant() || m.HasBlouse()
}

// KurtiCompleteness returns the percentage (0-100) of kurti fields filled.
func (m Measurement) KurtiCompleteness() int {
	values := m.kurtiValues()
	filled := 0
	for _, value := range values {
		if value != "" {
			filled++
		}
	}
	return filled * 100 / len(values)
}

func anyFilled(values ...string) bool {
	for _, value := range values {
		if value != "" {
			return true
		}
	}
	return false
}

// Order is a tailoring order placed by a customer.
type Order struct {
	ID                    int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id"`
	CustomerID            int64   `gorm:"column:customerId;not null" json:"customerId" yaml:"customerId"`
	CustomerName          string  `gorm:"column:customerName;not null" json:"customerName" yaml:"customerName"`
	OrderDate             string  `gorm:"column:orderDate;not null" json:"orderDate" yaml:"orderDate"`
	OrderType             string  `gorm:"column:orderType;not null" json:"orderType" yaml:"orderType"`
	EstimatedDeliveryDate string  `gorm:"column:estimatedDeliveryDate;not null" json:"estimatedDeliveryDate" yaml:"estimatedDeliveryDate"`
	Instructions          string  `gorm:"column:instructions;not null" json:"instructions" yaml:"instructions"`
	Amount                float64 `gorm:"column:amount;not null" json:"amount" yaml:"amount"`
	Status                string  `gorm:"column:status;not null" json:"status" yaml:"status"`
	AdvancePayment        float64 `gorm:"column:advancePayment;not null" json:"advancePayment" yaml:"advancePayment"`
	BalancePayment        float64 `gorm:"column:balancePayment;not null" json:"balancePayment" yaml:"balancePayment"`
	PaymentStatus         string  `gorm:"column:paymentStatus;not null" json:"paymentStatus" yaml:"paymentStatus"`
	PaymentDate           *string `gorm:"column:paymentDate" json:"paymentDate" yaml:"paymentDate"`
	SyncTrailer           `yaml:",inline"`
}

// TableName provides the explicit table binding for GORM.
func (Order) TableName() string {
	return "orders"
}

// WorkloadConfig holds the shop's working hours per weekday and the time one
// order takes. Callers treat it as a singleton.
type WorkloadConfig struct {
	ID                int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id"`
	TimePerOrderHours float64 `gorm:"column:timePerOrderHours;not null" json:"timePerOrderHours" yaml:"timePerOrderHours"`
	MondayHours       float64 `gorm:"column:mondayHours;not null" json:"mondayHours" yaml:"mondayHours"`
	TuesdayHours      float64 `gorm:"column:tuesdayHours;not null" json:"tuesdayHours" yaml:"tuesdayHours"`
	WednesdayHours    float64 `gorm:"column:wednesdayHours;not null" json:"wednesdayHours" yaml:"wednesdayHours"`
	ThursdayHours     float64 `gorm:"column:thursdayHours;not null" json:"thursdayHours" yaml:"thursdayHours"`
	FridayHours       float64 `gorm:"column:fridayHours;not null" json:"fridayHours" yaml:"fridayHours"`
	SaturdayHours     float64 `gorm:"column:saturdayHours;not null" json:"saturdayHours" yaml:"saturdayHours"`
	SundayHours       float64 `gorm:"column:sundayHours;not null" json:"sundayHours" yaml:"sundayHours"`
}

// TableName provides the explicit table binding for GORM.
func (WorkloadConfig) TableName() string {
	return "workload_config"
}

// DefaultWorkloadConfig returns the configuration created on first use.
func DefaultWorkloadConfig() WorkloadConfig {
	return WorkloadConfig{
		TimePerOrderHours: 2,
		MondayHours:       8,
		TuesdayHours:      8,
		WednesdayHours:    8,
		ThursdayHours:     8,
		FridayHours:       8,
		SaturdayHours:     4,
		SundayHours:       0,
	}
}

// HoursFor returns the working hours configured for day.
func (w WorkloadConfig) HoursFor(day time.Weekday) float64 {
	switch day {
	case time.Monday:
		return w.MondayHours
	case time.Tuesday:
		return w.TuesdayHours
	case time.Wednesday:
		return w.WednesdayHours
	case time.Thursday:
		return w.ThursdayHours
	case time.Friday:
		return w.FridayHours
	case time.Saturday:
		return w.SaturdayHours
	case time.Sunday:
		return w.SundayHours
	default:
		return 0
	}
}

// TotalWeeklyHours sums the hours of all seven days.
func (w WorkloadConfig) TotalWeeklyHours() float64 {
	return w.MondayHours + w.TuesdayHours + w.WednesdayHours + w.ThursdayHours +
		w.FridayHours + w.SaturdayHours + w.SundayHours
}
