package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/orders"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storefront"
)

type command struct {
	summary string
	run     func(ctx context.Context, app *storefront.App, args []string) error
}

var commands = map[string]command{
	"login":       {"sign in with -email and -password", login},
	"logout":      {"end the current session", logout},
	"whoami":      {"show the signed-in user", whoami},
	"products":    {"list products (-q, -category, -page)", products},
	"cart":        {"show the cart", showCart},
	"add-to-cart": {"add -product with -qty to the cart", addToCart},
	"checkout":    {"check out the cart (-cod confirms cash on delivery)", checkout},
	"orders":      {"list your orders", listOrders},
	"reviews":     {"list the reviews of -product", listReviews},
	"debug":       {"show what is stored for the session", debugSession},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: storefront <command> [flags]")
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, commands[name].summary)
	}
	w.Flush()
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

var errNotSignedIn = errors.New("not signed in, run `storefront login` first")

func requireSession(app *storefront.App) error {
	if !app.Session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func login(ctx context.Context, app *storefront.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := app.Session.Login(ctx, *email, *password); err != nil {
		return errors.New(api.UserMessage(err, "Login failed"))
	}
	fmt.Printf("Signed in as %s\n", app.Session.User().DisplayName())
	return nil
}

func logout(_ context.Context, app *storefront.App, _ []string) error {
	if err := app.Session.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func whoami(_ context.Context, app *storefront.App, _ []string) error {
	if err := requireSession(app); err != nil {
		return err
	}
	u := app.Session.User()
	fmt.Printf("%s <%s> role=%s verified=%t\n", u.DisplayName(), u.Email, u.Role, u.IsVerified)
	return nil
}

func products(ctx context.Context, app *storefront.App, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	q := fs.String("q", "", "search text")
	category := fs.String("category", "", "category id")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := app.Products.Fetch(ctx, catalog.Filters{Query: *q, Category: *category, Page: *page})
	if err != nil {
		return errors.New(app.Products.LastError())
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tRATING")
	for _, p := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.1f (%d)\n", p.ID, p.Name, p.Price, p.AverageRating, p.RatingCount)
	}
	w.Flush()
	fmt.Printf("page %d of %d, %d products\n", result.Page, app.Products.TotalPages(), result.Total)
	return nil
}

func showCart(_ context.Context, app *storefront.App, _ []string) error {
	if err := requireSession(app); err != nil {
		return err
	}
	c := app.Cart.Snapshot()
	if c == nil || len(c.Items) == 0 {
		if msg := app.Cart.LastError(); msg != "" {
			return errors.New(msg)
		}
		fmt.Println("Your cart is empty")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ITEM\tPRODUCT\tQTY\tSUBTOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", it.ID, it.ProductName, it.Quantity, it.Subtotal)
	}
	w.Flush()
	fmt.Printf("%d items, total %.2f\n", c.TotalItems, c.TotalPrice)
	return nil
}

func addToCart(ctx context.Context, app *storefront.App, args []string) error {
	fs := flag.NewFlagSet("add-to-cart", flag.ContinueOnError)
	product := fs.String("product", "", "product id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSession(app); err != nil {
		return err
	}
	c, err := app.Cart.AddItem(ctx, *product, *qty)
	if err != nil {
		return errors.New(api.UserMessage(err, "Failed to add item"))
	}
	fmt.Printf("Cart now holds %d items\n", c.TotalItems)
	return nil
}

func checkout(ctx context.Context, app *storefront.App, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	cod := fs.Bool("cod", false, "confirm the orders as cash on delivery")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSession(app); err != nil {
		return err
	}
	set, err := app.Cart.Checkout(ctx)
	if err != nil {
		return errors.New(api.UserMessage(err, "Checkout failed"))
	}
	fmt.Printf("Placed %d orders, total %s\n", len(set), set.Total())
	if *cod {
		if err := app.Orders.ConfirmCashOnDelivery(ctx, set); err != nil {
			return errors.New(api.UserMessage(err, "Failed to confirm orders"))
		}
		fmt.Println("Orders confirmed for cash on delivery")
	}
	return nil
}

func listOrders(ctx context.Context, app *storefront.App, _ []string) error {
	if err := requireSession(app); err != nil {
		return err
	}
	list, err := app.Orders.FetchMine(ctx)
	if err != nil {
		return errors.New(app.Orders.LastError())
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tPLACED")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.ID, o.Status, o.Total, o.CreatedAt.Local().Format(time.DateTime))
	}
	w.Flush()
	fmt.Printf("%d orders, %s in total\n", len(list), orders.Set(list).Total())
	return nil
}

func listReviews(ctx context.Context, app *storefront.App, args []string) error {
	fs := flag.NewFlagSet("reviews", flag.ContinueOnError)
	product := fs.String("product", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *product == "" {
		return errors.New("-product is required")
	}
	list, err := app.Reviews.FetchProduct(ctx, *product)
	if err != nil {
		return errors.New(app.Reviews.LastError())
	}
	for _, r := range list {
		author := r.UserID
		if r.User != nil {
			author = r.User.Email
		}
		fmt.Printf("%d/5 %s: %s\n", r.Rating, author, r.Comment)
	}
	return nil
}

func debugSession(_ context.Context, app *storefront.App, _ []string) error {
	d := session.Inspect(app.Tokens, time.Now())
	w := newTable()
	fmt.Fprintf(w, "access token\t%t\t%s\n", d.HasAccessToken, d.AccessTokenPreview)
	fmt.Fprintf(w, "refresh token\t%t\t%s\n", d.HasRefreshToken, d.RefreshTokenPreview)
	if d.Subject != "" {
		fmt.Fprintf(w, "subject\t%s\n", d.Subject)
	}
	if d.ExpiresAt != nil {
		fmt.Fprintf(w, "expires\t%s\texpired=%t\n", d.ExpiresAt.Local().Format(time.DateTime), d.Expired)
	}
	switch {
	case d.User != nil:
		fmt.Fprintf(w, "user\t%s\t%s\n", d.User.ID, d.User.Email)
	case d.UserError != "":
		fmt.Fprintf(w, "user\terror\t%s\n", d.UserError)
	}
	fmt.Fprintf(w, "state\t%s\n", app.Session.State())
	return w.Flush()
}
