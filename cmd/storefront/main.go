// Command storefront drives the sync client from a terminal.
//
//	storefront sync
//	storefront url http://192.168.1.20:3000
//	storefront order -customer C001 -item LAP-001=1 -item TEC-101=2
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"erpbridge/internal/config"
	"erpbridge/internal/repos"
	"erpbridge/internal/storefront"
)

type itemFlags []string

func (f *itemFlags) String() string { return strings.Join(*f, ",") }

func (f *itemFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg := config.LoadClient()

	settings, err := repos.OpenSettings(cfg.StateDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer settings.Close()

	sf, err := storefront.New(settings, cfg.BridgeURL)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "sync":
		err = runSync(ctx, sf)
	case "url":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		err = sf.SetBaseURL(os.Args[2])
		if err == nil {
			fmt.Println("relay URL saved:", sf.Config().BaseURL)
		}
	case "order":
		err = runOrder(ctx, sf, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: storefront sync | url <base-url> | order -customer ID -item ID=QTY [-item ...]")
}

func runSync(ctx context.Context, sf *storefront.Orchestrator) error {
	err := sf.Start(ctx)
	printStatus(sf)
	if err != nil {
		return nil // already shown
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range sf.Products() {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Price, p.Stock)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CUSTOMER\tNAME\tTAX ID\t")
	for _, c := range sf.Customers() {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", c.ID, c.Name, c.TaxID)
	}
	_ = w.Flush()
	printLogs(sf)
	return nil
}

func runOrder(ctx context.Context, sf *storefront.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	customer := fs.String("customer", "", "customer id")
	var items itemFlags
	fs.Var(&items, "item", "product ID=QTY, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := sf.Start(ctx); err != nil {
		printStatus(sf)
		return err
	}
	for _, it := range items {
		id, qty, err := parseItem(it)
		if err != nil {
			return err
		}
		if err := sf.AddToCart(id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if err := sf.UpdateQuantity(id, qty); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	if *customer != "" {
		if err := sf.SelectCustomer(*customer); err != nil {
			return fmt.Errorf("%s: %w", *customer, err)
		}
	}

	o, err := sf.Checkout(ctx)
	if errors.Is(err, storefront.ErrEmptyCart) || errors.Is(err, storefront.ErrNoCustomer) {
		usage()
	}
	if err != nil {
		printLogs(sf)
		return err
	}
	fmt.Printf("order %s for %s: %.2f (%s)\n", o.ID, o.CustomerName, o.Total, o.Status)
	return nil
}

func parseItem(s string) (string, int, error) {
	id, q, ok := strings.Cut(s, "=")
	if !ok {
		return id, 1, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		return "", 0, fmt.Errorf("bad quantity in %q", s)
	}
	return id, n, nil
}

func printStatus(sf *storefront.Orchestrator) {
	cfg := sf.Config()
	fmt.Printf("relay %s: %s", cfg.BaseURL, cfg.Status)
	if l := sf.Latency(); l != "" {
		fmt.Printf(" (%s)", l)
	}
	fmt.Println()
	if ce := sf.LastError(); ce != nil {
		fmt.Printf("%s: %s\n", ce.Title, ce.Message)
	}
}

func printLogs(sf *storefront.Orchestrator) {
	logs := sf.Logs()
	if len(logs) == 0 {
		return
	}
	fmt.Println()
	for _, e := range logs {
		fmt.Printf("%s  %-6s %s\n", e.Timestamp.Format("15:04:05"), e.Type, e.Query)
	}
}
