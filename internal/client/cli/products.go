package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/models"
)

func (a *App) List(ctx context.Context) error {
	items, err := a.products.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No products")
		return nil
	}
	for _, p := range items {
		fmt.Fprintln(a.out, p.String())
	}
	return nil
}

func (a *App) Show(ctx context.Context, id int64) error {
	p, err := a.products.Get(ctx, id)
	if err != nil {
		return err
	}
	printProduct(a, p)
	return nil
}

func printProduct(a *App, p *models.Product) {
	fmt.Fprintln(a.out, p.String())
	if p.Description != "" {
		fmt.Fprintln(a.out, p.Description)
	}
	if p.ImageURL != "" {
		fmt.Fprintln(a.out, "image:", p.ImageURL)
	}
}

// promptProduct asks for every editable field. Blank answers keep the value
// already in p.
func (a *App) promptProduct(p *models.Product) error {
	name, err := getSimpleText(a.reader, withCurrent("Name", p.Name), a.out)
	if err != nil {
		return err
	}
	if name != "" {
		p.Name = name
	}

	desc, err := getMultiline(a.reader, withCurrent("Description", p.Description), a.out)
	if err != nil {
		return err
	}
	if desc != "" {
		p.Description = desc
	}

	price, err := getSimpleText(a.reader, withCurrent("Price", formatPrice(p)), a.out)
	if err != nil {
		return err
	}
	if price != "" {
		v, err := strconv.ParseFloat(price, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", price)
		}
		p.Price = v
	}

	stock, err := getSimpleText(a.reader, withCurrent("In stock (y/n)", yesNo(p.InStock)), a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(stock) {
	case "":
	case "y", "yes":
		p.InStock = true
	case "n", "no":
		p.InStock = false
	default:
		return fmt.Errorf("answer y or n, got %q", stock)
	}
	return nil
}

func withCurrent(label, cur string) string {
	if cur == "" {
		return label
	}
	return fmt.Sprintf("%s [%s]", label, cur)
}

func formatPrice(p *models.Product) string {
	if p.ID == 0 && p.Price == 0 {
		return ""
	}
	return strconv.FormatFloat(p.Price, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// Add creates a product. Only Admin sessions are accepted by the server.
func (a *App) Add(ctx context.Context) error {
	p := &models.Product{InStock: true}
	if err := a.promptProduct(p); err != nil {
		return err
	}
	out, err := a.products.Create(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created product #%d\n", out.ID)
	return nil
}

func (a *App) Edit(ctx context.Context, id int64) error {
	p, err := a.products.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.promptProduct(p); err != nil {
		return err
	}
	out, err := a.products.Update(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", out.String())
	return nil
}

func (a *App) Delete(ctx context.Context, id int64) error {
	if err := a.products.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted product #%d\n", id)
	return nil
}

func (a *App) Image(ctx context.Context, id int64, path string) error {
	if err := a.products.UploadImage(ctx, id, path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded image for product #%d\n", id)
	return nil
}
