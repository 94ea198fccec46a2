package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type User struct {
	ID                uuid.UUID
	Email             string
	HashedPassword    string
	FullName          string
	Role              string
	RestaurantOwnerID pgtype.UUID
	RestaurantName    pgtype.Text
	RestaurantAddress pgtype.Text
	RestaurantPhone   pgtype.Text
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type DiningTable struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Number    int32
	Name      pgtype.Text
	Capacity  int32
	IsActive  bool
	GridX     int32
	GridY     int32
	SortOrder int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Department struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	IsActive    bool
	SortOrder   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	IsActive    bool
	SortOrder   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	CategoryID   uuid.UUID
	DepartmentID pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        decimal.Decimal
	ImagePath    pgtype.Text
	IsActive     bool
	IsAvailable  bool
	SortOrder    int32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Selection struct {
	ID            uuid.UUID
	MenuItemID    uuid.UUID
	Name          string
	IsRequired    bool
	AllowMultiple bool
	SortOrder     int32
	CreatedAt     time.Time
}

type SelectionOption struct {
	ID          uuid.UUID
	SelectionID uuid.UUID
	Name        string
	PriceAdd    decimal.Decimal
	IsAvailable bool
	SortOrder   int32
}

// Session is a party occupying a table, seated by staff or started by a
// customer scanning a table QR code.
type Session struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Origin        string
	TableID       pgtype.UUID
	SessionToken  pgtype.Text
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	CustomerEmail pgtype.Text
	PartySize     int32
	Status        string
	IsActive      bool
	Notes         pgtype.Text
	CheckInTime   time.Time
	CheckOutTime  pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Order struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	OrderNumber  string
	SessionID    pgtype.UUID
	TableID      pgtype.UUID
	Status       string
	TotalAmount  decimal.Decimal
	Notes        pgtype.Text
	CustomerName pgtype.Text
	WaiterID     pgtype.UUID
	CookID       pgtype.UUID
	ServedBy     pgtype.UUID
	PreparingAt  pgtype.Timestamptz
	ReadyAt      pgtype.Timestamptz
	ServedAt     pgtype.Timestamptz
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      decimal.Decimal
	Selections []byte
	Notes      pgtype.Text
	CreatedAt  time.Time
}

type BillSplit struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	SessionID   uuid.UUID
	OrderID     pgtype.UUID
	SplitType   string
	Label       pgtype.Text
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Payment is a settlement snapshot. Restaurant, customer and table fields are
// copied at creation so later edits to those rows never alter a receipt.
type Payment struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	PaymentNumber      string
	SessionID          uuid.UUID
	BillSplitID        pgtype.UUID
	RestaurantName     pgtype.Text
	RestaurantAddress  pgtype.Text
	RestaurantPhone    pgtype.Text
	CustomerName       pgtype.Text
	CustomerPhone      pgtype.Text
	TableNumber        pgtype.Int4
	TableName          pgtype.Text
	PaymentMethod      string
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	ExtraChargesAmount decimal.Decimal
	FinalAmount        decimal.Decimal
	ReceivedAmount     decimal.NullDecimal
	ChangeAmount       decimal.NullDecimal
	ExtraCharges       []byte
	Notes              pgtype.Text
	ProcessedBy        pgtype.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type PaymentItem struct {
	ID                  uuid.UUID
	PaymentID           uuid.UUID
	OrderItemID         pgtype.UUID
	MenuItemName        string
	MenuItemDescription pgtype.Text
	CategoryName        pgtype.Text
	UnitPrice           decimal.Decimal
	Quantity            decimal.Decimal
	TotalPrice          decimal.Decimal
	Selections          []byte
	Notes               pgtype.Text
}
