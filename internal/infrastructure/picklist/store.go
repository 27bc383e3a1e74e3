// Package picklist persists fulfillment pick lists as CSV workbooks so
// annotations survive service restarts and data refreshes.
package picklist

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	itemsFile    = "picklist_items.csv"
	productsFile = "picklist_products.csv"
)

// ItemRow is one order line awaiting fulfillment.
type ItemRow struct {
	Order       string    `json:"order" binding:"required,order_name"`
	ProductName string    `json:"productName" binding:"required"`
	Quantity    int       `json:"quantity" binding:"gte=0"`
	Check       bool      `json:"check"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductRow aggregates outstanding quantity per product across orders.
type ProductRow struct {
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	OrderNumbers string `json:"orderNumbers"`
	Check        bool   `json:"check"`
	Notes        string `json:"notes"`
}

// Store reads and writes pick list CSV files under a single directory.
// Writes go through a temp file and rename so readers never observe a
// partial workbook.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create picklist dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

var itemsHeader = []string{"order", "product_name", "quantity", "check", "notes", "created_at"}

var productsHeader = []string{"product_name", "quantity", "order_numbers", "check", "notes"}

// LoadItems reads the per-item sheet. A missing file yields an empty
// list, not an error, so the first refresh starts clean.
func (s *Store) LoadItems() ([]ItemRow, error) {
	records, err := s.read(itemsFile, len(itemsHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]ItemRow, 0, len(records))
	for i, rec := range records {
		qty, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad quantity %q: %w", itemsFile, i+1, rec[2], err)
		}
		createdAt, err := time.Parse(time.RFC3339, rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad created_at %q: %w", itemsFile, i+1, rec[5], err)
		}
		rows = append(rows, ItemRow{
			Order:       rec[0],
			ProductName: rec[1],
			Quantity:    qty,
			Check:       rec[3] == "true",
			Notes:       rec[4],
			CreatedAt:   createdAt,
		})
	}
	return rows, nil
}

// SaveItems atomically replaces the per-item sheet.
func (s *Store) SaveItems(rows []ItemRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Order,
			r.ProductName,
			strconv.Itoa(r.Quantity),
			strconv.FormatBool(r.Check),
			r.Notes,
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return s.write(itemsFile, itemsHeader, records)
}

// LoadProducts reads the aggregated sheet. A missing file yields an
// empty list.
func (s *Store) LoadProducts() ([]ProductRow, error) {
	records, err := s.read(productsFile, len(productsHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]ProductRow, 0, len(records))
	for i, rec := range records {
		qty, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad quantity %q: %w", productsFile, i+1, rec[1], err)
		}
		rows = append(rows, ProductRow{
			ProductName:  rec[0],
			Quantity:     qty,
			OrderNumbers: rec[2],
			Check:        rec[3] == "true",
			Notes:        rec[4],
		})
	}
	return rows, nil
}

// SaveProducts atomically replaces the aggregated sheet.
func (s *Store) SaveProducts(rows []ProductRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ProductName,
			strconv.Itoa(r.Quantity),
			r.OrderNumbers,
			strconv.FormatBool(r.Check),
			r.Notes,
		})
	}
	return s.write(productsFile, productsHeader, records)
}

func (s *Store) read(name string, wantFields int) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = wantFields
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	// Skip the header row.
	return records[1:], nil
}

func (s *Store) write(name string, header []string, records [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s header: %w", name, err)
	}
	if err := writer.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
