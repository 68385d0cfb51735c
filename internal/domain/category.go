package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// OthersHead is the expense head whose note carries a free-text category.
const OthersHead = "Others"

var ExpenseHeads = []string{
	"Clearing Cost",
	"P.P. Bags",
	"Warehouse/Port Rent",
	"Stock Management",
	"Labour Charges/Sweeping/Restacking",
	"Loading/Unloading charges/Hamali/Khamali charges",
	"Weighment Charges",
	"Surveyor Charges",
	"Transportation Charges",
}

// Category is either a Known expense head or a Custom free-text label.
// Custom labels taken from an unlisted head are sent back under that head.
type Category struct {
	head     string
	custom   string
	unlisted bool
}

func Known(head string) Category { return Category{head: head} }

func Custom(label string) Category { return Category{custom: label} }

// ParseCategory maps a wire head and note onto a Category. "Others" takes its
// label from the note; heads outside the known list become Custom as-is.
func ParseCategory(head, note string) (Category, error) {
	head = strings.TrimSpace(head)
	note = strings.TrimSpace(note)
	if head == "" {
		return Category{}, errors.New("expense head is required")
	}
	if strings.EqualFold(head, OthersHead) {
		if note == "" {
			return Custom(OthersHead), nil
		}
		return Custom(note), nil
	}
	for _, known := range ExpenseHeads {
		if strings.EqualFold(known, head) {
			return Known(known), nil
		}
	}
	return Category{custom: head, unlisted: true}, nil
}

func (c Category) IsZero() bool { return c.head == "" && c.custom == "" }

func (c Category) IsCustom() bool { return c.head == "" && c.custom != "" }

// Head is the wire head: the known head, an unlisted head as received, or
// "Others" for labels carried in the note.
func (c Category) Head() string {
	if c.unlisted {
		return c.custom
	}
	if c.IsCustom() {
		return OthersHead
	}
	return c.head
}

// NoteCarried reports whether the label travels in the note field.
func (c Category) NoteCarried() bool { return c.IsCustom() && !c.unlisted }

func (c Category) Label() string {
	if c.IsCustom() {
		return c.custom
	}
	return c.head
}

type ExpenseEntry struct {
	Category Category
	Amount   float64 `validate:"gte=0"`
	Date     Date
	Note     string
}

type expenseEntryWire struct {
	Head     string  `json:"head"`
	Amount   float64 `json:"amount"`
	Date     Date    `json:"date"`
	Note     string  `json:"note"`
	Category string  `json:"category,omitempty"`
}

func (e ExpenseEntry) MarshalJSON() ([]byte, error) {
	wire := expenseEntryWire{
		Head:     e.Category.Head(),
		Amount:   e.Amount,
		Date:     e.Date,
		Note:     e.Note,
		Category: e.Category.Label(),
	}
	if e.Category.NoteCarried() {
		wire.Note = e.Category.Label()
	}
	return json.Marshal(wire)
}

func (e *ExpenseEntry) UnmarshalJSON(data []byte) error {
	var wire expenseEntryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	category, err := ParseCategory(wire.Head, wire.Note)
	if err != nil {
		return err
	}
	*e = ExpenseEntry{Category: category, Amount: wire.Amount, Date: wire.Date}
	if !category.NoteCarried() {
		e.Note = strings.TrimSpace(wire.Note)
	}
	return nil
}
