// cartctl is a CLI tool for poking the minicart daemon.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartctl show -daemon URL
//	cartctl add -daemon URL -sku ID [-qty N] [-seller ID] [-name NAME]
//	cartctl qty -daemon URL -sku ID -qty N
//	cartctl rm -daemon URL -sku ID
//	cartctl open -daemon URL
//	cartctl close -daemon URL
//
// Examples:
//
//	cartctl add -daemon http://localhost:8080 -sku 2000024 -qty 2
//	cartctl qty -daemon http://localhost:8080 -sku 2000024 -qty 5
//	cartctl show -daemon http://localhost:8080 -q
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	daemonURL string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen = "", "", ""
	colorYellow, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "show":
		runShow(args)
	case "add":
		runAdd(args)
	case "qty":
		runQty(args)
	case "rm":
		runRemove(args)
	case "open":
		runSetOpen(args, true)
	case "close":
		runSetOpen(args, false)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartctl - minicart daemon test tool

Usage:
  cartctl <command> [options]

Commands:
  show   Show current cart state
  add    Add an item to the cart
  qty    Change an item's quantity
  rm     Remove an item from the cart
  open   Open the minicart
  close  Close the minicart

Examples:
  # Add two units and watch the sync settle
  cartctl add -daemon http://localhost:8080 -sku 2000024 -qty 2
  cartctl show -daemon http://localhost:8080

  # Remove the item again
  cartctl rm -daemon http://localhost:8080 -sku 2000024

Run 'cartctl <command> -h' for command-specific options.
`)
}

// commonFlags registers the flags shared by every command.
func commonFlags(fs *flag.FlagSet) {
	fs.StringVar(&daemonURL, "daemon", "http://localhost:8080", "minicart daemon base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - minimal output")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

// =============================================================================
// COMMANDS
// =============================================================================

func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	commonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl show [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	resp, err := doRequest("GET", "/cart", nil)
	if err != nil {
		fatal("Failed to get cart: %v", err)
	}

	printCart(resp)
}

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	commonFlags(fs)
	var sku, seller, name string
	var qty int
	fs.StringVar(&sku, "sku", "", "SKU ID (required)")
	fs.IntVar(&qty, "qty", 1, "Quantity")
	fs.StringVar(&seller, "seller", "1", "Seller ID")
	fs.StringVar(&name, "name", "", "Display name")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl add -sku ID [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sku == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"id":       sku,
		"quantity": qty,
		"seller":   seller,
	}
	if name != "" {
		reqBody["name"] = name
	}

	resp, err := doRequest("POST", "/cart/items", reqBody)
	if err != nil {
		fatal("Failed to add item: %v", err)
	}

	printSuccess("Added %s x%d", sku, qty)
	printCart(resp)
}

func runQty(args []string) {
	fs := flag.NewFlagSet("qty", flag.ExitOnError)
	commonFlags(fs)
	var sku string
	var qty int
	fs.StringVar(&sku, "sku", "", "SKU ID (required)")
	fs.IntVar(&qty, "qty", -1, "New quantity (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl qty -sku ID -qty N [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sku == "" || qty < 0 {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]int{"quantity": qty}
	resp, err := doRequest("PATCH", "/cart/items/"+url.PathEscape(sku), reqBody)
	if err != nil {
		fatal("Failed to set quantity: %v", err)
	}

	printSuccess("Set %s to x%d", sku, qty)
	printCart(resp)
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	commonFlags(fs)
	var sku string
	fs.StringVar(&sku, "sku", "", "SKU ID (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl rm -sku ID [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sku == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("DELETE", "/cart/items/"+url.PathEscape(sku), nil)
	if err != nil {
		fatal("Failed to remove item: %v", err)
	}

	printSuccess("Removed %s", sku)
	printCart(resp)
}

func runSetOpen(args []string, open bool) {
	name := "close"
	if open {
		name = "open"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	commonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl %s [options]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	resp, err := doRequest("POST", "/cart/open", map[string]bool{"open": open})
	if err != nil {
		fatal("Failed to %s cart: %v", name, err)
	}

	printSuccess("Cart %s", map[bool]string{true: "opened", false: "closed"}[open])
	printCart(resp)
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func doRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	reqURL := daemonURL + path
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if verbose {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if verbose {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return result, nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printCart renders the cart view from a daemon response.
func printCart(resp map[string]interface{}) {
	if quiet {
		if items, ok := resp["items"].([]interface{}); ok {
			for _, it := range items {
				m, ok := it.(map[string]interface{})
				if !ok {
					continue
				}
				id, _ := m["id"].(string)
				qty, _ := m["quantity"].(float64)
				fmt.Printf("%s\t%d\n", id, int(qty))
			}
		}
		return
	}

	syncing, _ := resp["isSyncing"].(bool)
	open, _ := resp["isOpen"].(bool)
	fmt.Printf("\n%sCart%s (open=%v syncing=%v)\n", colorBold, colorReset, open, syncing)

	items, ok := resp["items"].([]interface{})
	if !ok || len(items) == 0 {
		fmt.Printf("  %s(empty)%s\n", colorGray, colorReset)
		return
	}

	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		name, _ := m["name"].(string)
		qty, _ := m["quantity"].(float64)
		status, _ := m["localStatus"].(string)

		label := id
		if name != "" {
			label = fmt.Sprintf("%s (%s)", name, id)
		}
		marker := ""
		if status == "modified" {
			marker = fmt.Sprintf(" %s*pending%s", colorYellow, colorReset)
		}
		fmt.Printf("  %s%-40s%s x%-3d %s%s\n",
			colorCyan, label, colorReset, int(qty), formatCents(m["sellingPrice"]), marker)
	}

	if form, ok := resp["orderForm"].(map[string]interface{}); ok {
		if formID, ok := form["orderFormId"].(string); ok && formID != "" {
			fmt.Printf("  %sorder form: %s%s\n", colorGray, formID, colorReset)
		}
	}
}

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s> REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s< RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func formatCents(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return fmt.Sprintf("$%.2f", val/100)
	case int:
		return fmt.Sprintf("$%.2f", float64(val)/100)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
