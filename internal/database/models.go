package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Booking struct {
	ID          uuid.UUID      `json:"id"`
	RoomID      uuid.UUID      `json:"room_id"`
	GuestName   string         `json:"guest_name"`
	GuestEmail  string         `json:"guest_email"`
	GuestPhone  pgtype.Text    `json:"guest_phone"`
	CheckIn     pgtype.Date    `json:"check_in"`
	CheckOut    pgtype.Date    `json:"check_out"`
	Guests      int32          `json:"guests"`
	Status      string         `json:"status"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Department struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type DiningTable struct {
	ID        uuid.UUID   `json:"id"`
	Number    int32       `json:"number"`
	Capacity  int32       `json:"capacity"`
	Location  pgtype.Text `json:"location"`
	Status    string      `json:"status"`
	QrToken   string      `json:"qr_token"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type LeaveRequest struct {
	ID         uuid.UUID          `json:"id"`
	StaffID    uuid.UUID          `json:"staff_id"`
	LeaveType  string             `json:"leave_type"`
	StartDate  pgtype.Date        `json:"start_date"`
	EndDate    pgtype.Date        `json:"end_date"`
	Reason     pgtype.Text        `json:"reason"`
	Status     string             `json:"status"`
	ReviewedBy pgtype.UUID        `json:"reviewed_by"`
	ReviewedAt pgtype.Timestamptz `json:"reviewed_at"`
	ReviewNote pgtype.Text        `json:"review_note"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type MenuItem struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Category    string         `json:"category"`
	Price       pgtype.Numeric `json:"price"`
	PrepMinutes int32          `json:"prep_minutes"`
	IsAvailable bool           `json:"is_available"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Order struct {
	ID               uuid.UUID      `json:"id"`
	OrderNumber      string         `json:"order_number"`
	TableID          pgtype.UUID    `json:"table_id"`
	CustomerName     pgtype.Text    `json:"customer_name"`
	Status           string         `json:"status"`
	Notes            pgtype.Text    `json:"notes"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	EstimatedMinutes int32          `json:"estimated_minutes"`
	CreatedBy        pgtype.UUID    `json:"created_by"`
	StatusChangedAt  time.Time      `json:"status_changed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	Subtotal   pgtype.Numeric `json:"subtotal"`
	Notes      pgtype.Text    `json:"notes"`
}

type PasswordReset struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	TokenHash string             `json:"token_hash"`
	ExpiresAt time.Time          `json:"expires_at"`
	UsedAt    pgtype.Timestamptz `json:"used_at"`
	CreatedAt time.Time          `json:"created_at"`
}

type Payment struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     pgtype.UUID    `json:"order_id"`
	BookingID   pgtype.UUID    `json:"booking_id"`
	Method      string         `json:"method"`
	Amount      pgtype.Numeric `json:"amount"`
	Reference   pgtype.Text    `json:"reference"`
	ProcessedBy uuid.UUID      `json:"processed_by"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type Room struct {
	ID            uuid.UUID      `json:"id"`
	Number        string         `json:"number"`
	RoomType      string         `json:"room_type"`
	PricePerNight pgtype.Numeric `json:"price_per_night"`
	Capacity      int32          `json:"capacity"`
	Status        string         `json:"status"`
	Description   pgtype.Text    `json:"description"`
	Amenities     []string       `json:"amenities"`
	ImageUrl      pgtype.Text    `json:"image_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	FullName       string      `json:"full_name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	Phone          pgtype.Text `json:"phone"`
	DepartmentID   pgtype.UUID `json:"department_id"`
	Position       pgtype.Text `json:"position"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
