// price catalog entrypoint: the HTTP server plus one-shot subprograms working on the same catalog
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/budget"
	"price-catalog/src/pkg/catalog"
	"price-catalog/src/pkg/config"
	echomw "price-catalog/src/pkg/echo-middleware"
	"price-catalog/src/pkg/email"
	"price-catalog/src/pkg/ingest"
	"price-catalog/src/pkg/ocr"
	"price-catalog/src/pkg/paginate"
	"price-catalog/src/pkg/server"
	"price-catalog/src/pkg/session"
	"price-catalog/src/pkg/store"
	"price-catalog/src/pkg/util"
)

/*
parse flags, load the config file and hand every package its section.
A missing section keeps that package's defaults.
*/
func parseAndConfigure(subprogramCmd *flag.FlagSet, configPath *string, flags []string) {
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	config.InitializeConfig(*configPath)

	var storeCfg store.Config
	found, e := config.Section("store", &storeCfg)
	e.QuitIf(xerr.ErrorTypeError)
	store.InitializeConfig(localOrNil(found, &storeCfg))

	var serverCfg server.Config
	found, e = config.Section("server", &serverCfg)
	e.QuitIf(xerr.ErrorTypeError)
	server.InitializeConfig(localOrNil(found, &serverCfg))

	var middlewareCfg echomw.Config
	found, e = config.Section("echo-middleware", &middlewareCfg)
	e.QuitIf(xerr.ErrorTypeError)
	echomw.InitializeConfig(localOrNil(found, &middlewareCfg))

	var ocrCfg ocr.Config
	found, e = config.Section("ocr", &ocrCfg)
	e.QuitIf(xerr.ErrorTypeError)
	ocr.InitializeConfig(localOrNil(found, &ocrCfg))
}

func localOrNil[T any](found bool, local *T) *T {
	if !found {
		return nil
	}
	return local
}

// open the configured store and load the catalog from it, quit on failure
func openCatalog(ctx context.Context) (*catalog.Catalog, func()) {
	catalogStore, closeStore, e := store.Open(ctx, store.Cfg)
	e.QuitIf(xerr.ErrorTypeError)

	c := catalog.New(catalogStore)
	e = c.Load(ctx)
	if e != nil {
		closeStore()
	}
	e.QuitIf(xerr.ErrorTypeError)
	return c, closeStore
}

// print every chunk the way the chat transport would send it
func printChunks(chunks []string) {
	for _, chunk := range chunks {
		fmt.Print(chunk)
	}
}

func serve(subprogram string, flags []string) {
	config.CheckIfEnvVarsPresent(echomw.EnvAPIBearerToken)

	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	parseAndConfigure(subprogramCmd, configPath, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, closeStore := openCatalog(ctx)
	defer closeStore()

	ingestor := ingest.New(c, ocr.NewExtractor())
	s := server.New(server.Cfg, c, ingestor, session.NewPendingUploads(), os.Getenv(echomw.EnvAPIBearerToken))

	tl.Log(tl.Notice, palette.BlueBold, "%s price catalog with %d entries", "Serving", c.Len())
	e := s.Serve(ctx)
	e.QuitIf(xerr.ErrorTypeError)
}

func add(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	item := subprogramCmd.String("item", "", "Item name, stored lower-cased")
	rawPrice := subprogramCmd.String("price", "", "Price as written, e.g. 2.5m or 600m-1b")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(item, "item")
	util.RequiredFlag(rawPrice, "price")
	util.EnsureFlags()

	ctx := context.Background()
	c, closeStore := openCatalog(ctx)
	defer closeStore()

	e := c.Set(ctx, *item, *rawPrice)
	e.QuitIf(xerr.ErrorTypeError)
	fmt.Printf("Added %s with price %s.\n", *item, *rawPrice)
}

func value(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	item := subprogramCmd.String("item", "", "Item name to look up")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(item, "item")
	util.EnsureFlags()

	c, closeStore := openCatalog(context.Background())
	defer closeStore()

	entry, found := c.Get(*item)
	if !found {
		fmt.Printf("Sorry, I don't have the price for %s.\n", strings.TrimSpace(*item))
		return
	}
	fmt.Printf("The price of %s is %s.\n", entry.Key, entry.RawPrice)
}

func search(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	query := subprogramCmd.String("query", "", "Substring to look for in item names, empty lists everything")
	parseAndConfigure(subprogramCmd, configPath, flags)

	c, closeStore := openCatalog(context.Background())
	defer closeStore()

	printChunks(searchListing(c, *query, server.Cfg.MaxChunkLength))
}

// searchListing pages the entries matching query. An empty query lists the whole catalog.
func searchListing(c *catalog.Catalog, query string, maxChunkLength int) []string {
	matches := c.Search(query)
	if len(matches) == 0 {
		return []string{fmt.Sprintf("No items matching '%s'.\n", strings.TrimSpace(query))}
	}
	return paginate.Paginate(matches, maxChunkLength)
}

func budgetListing(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	amount := subprogramCmd.String("amount", "", "Budget, e.g. 1.5k or 2m")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(amount, "amount")
	util.EnsureFlags()

	c, closeStore := openCatalog(context.Background())
	defer closeStore()

	affordable, e := budget.Filter(c, *amount)
	e.QuitIf(xerr.ErrorTypeError)
	if len(affordable) == 0 {
		fmt.Printf("No items found within budget %s.\n", *amount)
		return
	}
	printChunks(paginate.Paginate(affordable, server.Cfg.MaxChunkLength))
}

func importFile(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	filePath := subprogramCmd.String("file", "", "Price list to import (.txt, .csv, .png, .jpg)")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(filePath, "file")
	util.EnsureFlags()

	kind, e := ingest.KindFromFilename(*filePath)
	e.QuitIf(xerr.ErrorTypeError)

	raw, err := os.ReadFile(*filePath)
	xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *filePath))

	ctx := context.Background()
	c, closeStore := openCatalog(ctx)
	defer closeStore()

	result, e := ingest.New(c, ocr.NewExtractor()).Ingest(ctx, kind, raw)
	e.QuitIf(xerr.ErrorTypeError)

	fmt.Printf("Imported %d items from '%s' (%d failed).\n", result.Succeeded, filepath.Base(*filePath), len(result.Failures))
	for _, failure := range result.Failures {
		fmt.Printf("record %d: %s\n", failure.Record, failure.Reason)
	}
}

/*
Print what OCR reads from a screenshot without touching the catalog. Useful
for tuning the ocr threshold before importing.
*/
func ocrPreview(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	imagePath := subprogramCmd.String("image", "", "Path to the screenshot to read.")
	language := subprogramCmd.String("language", "", "Overrides ocr language, e.g. eng+spa. \"tesseract --list-langs\"")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(imagePath, "image")
	util.EnsureFlags()

	if *language != "" {
		ocr.Cfg.Language = *language
	}

	imageBytes, err := os.ReadFile(*imagePath)
	xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *imagePath))

	ocrText, e := ocr.NewExtractor().ExtractText(context.Background(), imageBytes)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Notice1, palette.GreenBold, "%s for '%s'", "OCR run completed", *imagePath)
	fmt.Print(ocrText)
}

/*
Run the budget filter and mail the listing, with the same entries attached as
CSV. Without --send the message is only logged.
*/
func mailBudget(subprogram string, flags []string) {
	config.CheckIfEnvVarsPresent(
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION", // amazon ses
		"MAILGUN_DOMAIN", "MAILGUN_API_KEY", // mailgun
		"SENDGRID_API_KEY", // sendgrid
	)

	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")
	amount := subprogramCmd.String("amount", "", "Budget, e.g. 1.5k or 2m")
	provider := subprogramCmd.String("provider", "mailgun", "Provider to use when sending emails")
	senderAddress := subprogramCmd.String("sender", "", "Sender's address")
	recipientAddress := subprogramCmd.String("recipient", "", "Recipient addresses, comma separated")
	sendEmails := subprogramCmd.Bool("send", false, "Actually send, otherwise only log the message")
	parseAndConfigure(subprogramCmd, configPath, flags)

	util.RequiredFlag(amount, "amount")
	util.RequiredFlag(senderAddress, "sender")
	util.RequiredFlag(recipientAddress, "recipient")
	util.EnsureFlags()

	c, closeStore := openCatalog(context.Background())
	defer closeStore()

	affordable, e := budget.Filter(c, *amount)
	e.QuitIf(xerr.ErrorTypeError)

	text := fmt.Sprintf("No items found within budget %s.\n", *amount)
	if len(affordable) > 0 {
		text = strings.Join(paginate.Paginate(affordable, 0), "")
	}
	attachment, e := budgetCSV(affordable)
	e.QuitIf(xerr.ErrorTypeError)

	subject := fmt.Sprintf("Items within budget %s", *amount)
	e = email.SendMessage(
		email.Provider(*provider), sendEmails, *senderAddress, strings.Split(*recipientAddress, ","),
		subject, text, "", []email.Attachment{attachment},
	)
	e.QuitIf(xerr.ErrorTypeError)
}

func budgetCSV(entries []catalog.Entry) (attachment email.Attachment, e *xerr.Error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, []string{"Item", "Price"})
	for _, entry := range entries {
		rows = append(rows, []string{entry.Key, entry.RawPrice})
	}

	err := writer.WriteAll(rows)
	if err != nil {
		e = xerr.NewError(err, "write budget CSV", len(entries))
		return attachment, e
	}
	return email.Attachment{Filename: "budget.csv", ContentType: "text/csv", Content: buffer.Bytes()}, e
}

func main() {
	if len(os.Args) < 2 {
		tl.Log(
			tl.Error, palette.Red, "Usage: %s",
			"go run src/cmd/pricebot/main.go subprogram_name(serve, add, value, search, budget, import, mail-budget, ocr-preview)",
		)
		os.Exit(1)
	}
	subprogram := os.Args[1]
	flags := os.Args[2:]

	switch subprogram {
	case "serve":
		serve(subprogram, flags)
	case "add":
		add(subprogram, flags)
	case "value":
		value(subprogram, flags)
	case "search":
		search(subprogram, flags)
	case "budget":
		budgetListing(subprogram, flags)
	case "import":
		importFile(subprogram, flags)
	case "mail-budget":
		mailBudget(subprogram, flags)
	case "ocr-preview":
		ocrPreview(subprogram, flags)
	default:
		tl.Log(tl.Error, palette.Red, "Unknown subprogram: %s", subprogram)
		os.Exit(1)
	}
}
