// Package schema holds the canonical table definitions of the shop store and the
// identity hash the live database file is validated against.
package schema

import "strings"

// Table names as they appear in the database file.
const (
	TableCustomers      = "customers"
	TableMeasurements   = "measurements"
	TableOrders         = "orders"
	TableWorkloadConfig = "workload_config"
	TableCatalog        = "room_master_table"
)

const (
	// IdentityHash is stamped into the catalog row of every store created with
	// this schema. Files written by the mobile application carry the same value.
	IdentityHash = "e2d80ee52b917c8e94e4feea9b399df3"

	// CatalogRowID is the fixed primary key of the catalog row.
	CatalogRowID = 42
)

// Tables lists every data table in creation order. Parents precede children.
var Tables = []string{
	TableCustomers,
	TableMeasurements,
	TableOrders,
	TableWorkloadConfig,
}

// CascadeTargets maps a table to the tables whose rows a delete on it can
// remove through ON DELETE CASCADE.
var CascadeTargets = map[string][]string{
	TableCustomers: {TableMeasurements, TableOrders},
}

const createCustomers = "CREATE TABLE IF NOT EXISTS `customers` (" +
	"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, " +
	"`firstName` TEXT NOT NULL, `lastName` TEXT NOT NULL, `address` TEXT NOT NULL, " +
	"`mobile` TEXT NOT NULL, `alternateMobile` TEXT NOT NULL, `birthDate` TEXT NOT NULL, " +
	"`serverId` TEXT, `lastModified` INTEGER NOT NULL, `syncStatus` TEXT NOT NULL)"

const createCustomersIndex = "CREATE UNIQUE INDEX IF NOT EXISTS `index_customers_firstName_lastName_mobile` " +
	"ON `customers` (`firstName`, `lastName`, `mobile`)"

const createMeasurementsIndex = "CREATE INDEX IF NOT EXISTS `index_measurements_customerId` ON `measurements` (`customerId`)"

const createOrders = "CREATE TABLE IF NOT EXISTS `orders` (" +
	"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, `customerId` INTEGER NOT NULL, " +
	"`customerName` TEXT NOT NULL, `orderDate` TEXT NOT NULL, `orderType` TEXT NOT NULL, " +
	"`estimatedDeliveryDate` TEXT NOT NULL, `instructions` TEXT NOT NULL, `amount` REAL NOT NULL, " +
	"`status` TEXT NOT NULL, `advancePayment` REAL NOT NULL, `balancePayment` REAL NOT NULL, " +
	"`paymentStatus` TEXT NOT NULL, `paymentDate` TEXT, `serverId` TEXT, " +
	"`lastModified` INTEGER NOT NULL, `syncStatus` TEXT NOT NULL, " +
	"FOREIGN KEY(`customerId`) REFERENCES `customers`(`id`) ON UPDATE NO ACTION ON DELETE CASCADE )"

const createOrdersIndex = "CREATE INDEX IF NOT EXISTS `index_orders_customerId` ON `orders` (`customerId`)"

const createWorkloadConfig = "CREATE TABLE IF NOT EXISTS `workload_config` (" +
	"`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, `timePerOrderHours` REAL NOT NULL, " +
	"`mondayHours` REAL NOT NULL, `tuesdayHours` REAL NOT NULL, `wednesdayHours` REAL NOT NULL, " +
	"`thursdayHours` REAL NOT NULL, `fridayHours` REAL NOT NULL, `saturdayHours` REAL NOT NULL, " +
	"`sundayHours` REAL NOT NULL)"

const createCatalog = "CREATE TABLE IF NOT EXISTS room_master_table (id INTEGER PRIMARY KEY,identity_hash TEXT)"

// MeasurementFields lists the free-form measurement columns in table order.
var MeasurementFields = []string{
	"kurtiLength", "fullShoulder", "upperChestRound", "chestRound", "waistRound",
	"shoulderToApex", "apexToApex", "shoulderToLowChestLength", "skapLength",
	"skapLengthRound", "hipRound", "frontNeckDeep", "frontNeckWidth", "backNeckDeep",
	"readyShoulder", "sleevesHeightShort", "sleevesHeightElbow",
	"sleevesHeightThreeQuarter", "sleevesRound",
	"pantWaist", "pantLength", "pantHip", "pantBottom",
	"blouseLength", "blouseFullShoulder", "blouseChest", "blouseWaist",
	"blouseShoulderToApex", "blouseApexToApex", "blouseBackLength",
	"blouseFrontNeckDeep", "blouseFrontNeckWidth", "blouseBackNeckDeep",
	"blouseReadyShoulder", "blouseSleevesHeightShort", "blouseSleevesHeightElbow",
	"blouseSleevesHeightThreeQuarter", "blouseSleevesRound", "blouseHookOn",
}

func createMeasurements() string {
	var builder strings.Builder
	builder.WriteString("CREATE TABLE IF NOT EXISTS `measurements` (")
	builder.WriteString("`id` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, `customerId` INTEGER NOT NULL, ")
	for _, field := range MeasurementFields {
		builder.WriteString("`" + field + "` TEXT NOT NULL, ")
	}
	builder.WriteString("`lastUpdated` INTEGER NOT NULL, `serverId` TEXT, `lastModified` INTEGER NOT NULL, ")
	builder.WriteString("`syncStatus` TEXT NOT NULL, ")
	builder.WriteString("FOREIGN KEY(`customerId`) REFERENCES `customers`(`id`) ON UPDATE NO ACTION ON DELETE CASCADE )")
	return builder.String()
}

// CreateStatements returns the DDL executed against a new store, in order.
// The catalog row is stamped separately.
func CreateStatements() []string {
	return []string{
		createCustomers,
		createCustomersIndex,
		createMeasurements(),
		createMeasurementsIndex,
		createOrders,
		createOrdersIndex,
		createWorkloadConfig,
		createCatalog,
	}
}

// StampStatement writes the catalog row carrying the identity hash.
func StampStatement() string {
	return "INSERT OR REPLACE INTO room_master_table (id,identity_hash) VALUES(42, '" + IdentityHash + "')"
}

// DropStatements removes every data table, children first. The catalog table
// is kept so that a subsequent create re-stamps it.
func DropStatements() []string {
	statements := make([]string, 0, len(Tables))
	for index := len(Tables) - 1; index >= 0; index-- {
		statements = append(statements, "DROP TABLE IF EXISTS `"+Tables[index]+"`")
	}
	return statements
}

// CanonicalText joins the create statements into the text the identity hash
// describes. It is used for diagnostics when validation fails.
func CanonicalText() string {
	return strings.Join(CreateStatements(), ";\n") + ";"
}
