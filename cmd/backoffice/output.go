package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

func printUser(w io.Writer, u *model.User) {
	fmt.Fprintf(w, "ID:          %s\n", u.ID)
	fmt.Fprintf(w, "Name:        %s\n", u.Name)
	fmt.Fprintf(w, "Email:       %s\n", u.Email)
	fmt.Fprintf(w, "Verified:    %s\n", ui.RenderFlag(u.EmailVerified, "yes", "no"))
	if u.Image != "" {
		fmt.Fprintf(w, "Image:       %s\n", u.Image)
	}
	fmt.Fprintf(w, "Created At:  %s\n", formatTime(u.CreatedAt))
	fmt.Fprintf(w, "Updated At:  %s\n", formatTime(u.UpdatedAt))
}

func printProduct(w io.Writer, p *model.Product) {
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	fmt.Fprintf(w, "SKU:         %s\n", p.SKU)
	fmt.Fprintf(w, "Price:       %s\n", p.Price)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderFlag(p.Active, "active", "inactive"))
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	if p.CreatedBy != "" {
		fmt.Fprintf(w, "Created By:  %s\n", p.CreatedBy)
	}
	fmt.Fprintf(w, "Created At:  %s\n", formatTime(p.CreatedAt))
	if p.UpdatedBy != "" {
		fmt.Fprintf(w, "Updated By:  %s\n", p.UpdatedBy)
	}
	fmt.Fprintf(w, "Updated At:  %s\n", formatTime(p.UpdatedAt))
}

// userColumns and userRow are shared by the list table and the browser.
var userColumns = []string{"ID", "NAME", "EMAIL", "VERIFIED", "CREATED"}

func userRow(u *model.User) []string {
	verified := "no"
	if u.EmailVerified {
		verified = "yes"
	}
	return []string{u.ID, u.Name, u.Email, verified, formatTime(u.CreatedAt)}
}

var productColumns = []string{"ID", "NAME", "SKU", "PRICE", "STATUS", "UPDATED"}

func productRow(p *model.Product) []string {
	status := "inactive"
	if p.Active {
		status = "active"
	}
	return []string{p.ID, p.Name, p.SKU, p.Price, status, formatTime(p.UpdatedAt)}
}

// printTable writes rows under a header, truncating wide cells. Cells stay
// unstyled since escape codes would throw off the column widths.
func printTable(w io.Writer, columns []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = ui.Truncate(c, 40)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func printPagination(w io.Writer, p model.Pagination, shown int, noun string) {
	if p.Total == 0 {
		fmt.Fprintf(w, "\nno %s found\n", noun)
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.RenderMuted(fmt.Sprintf("%d %s (page %d of %d, %d total)",
		shown, noun, p.Page, max(p.TotalPages, 1), p.Total)))
}
