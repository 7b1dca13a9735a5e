package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/poulinpay/poulinpay/internal/config"
	"github.com/poulinpay/poulinpay/internal/gateway"
	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/poulinpay/poulinpay/internal/repository"
	"github.com/poulinpay/poulinpay/internal/service"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"
)

func main() {
	// A local .env is optional; real environment variables win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to an optional yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	tokens := repository.NewFileTokenStore(cfg.Credentials.File, logger)
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	gw := gateway.NewClient(cfg.API.BaseURL, tokens, httpClient, logger)

	app := &app{
		session:  service.NewSessionService(gw, tokens, logger),
		workflow: service.NewWorkflowService(gw, logger),
		logger:   logger,
	}

	if err := app.run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

type app struct {
	session  *service.SessionService
	workflow *service.WorkflowService
	logger   *logrus.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "register":
		return a.register(ctx, args[1:])
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "reset-password":
		return a.resetPassword(ctx, args[1:])
	case "dashboard":
		return a.dashboard(ctx)
	case "company":
		return a.company(ctx, args[1:])
	case "customer":
		return a.customer(ctx, args[1:])
	case "invoice":
		return a.invoice(ctx, args[1:])
	case "link":
		return a.link(ctx, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: poulin [-config file] <command>

commands:
  login -email <email>                       sign in and store the session
  register -email <email> [...]              create an account
  logout                                     drop the stored session
  whoami                                     show the current user
  reset-password -email <email>              reset a forgotten password
  dashboard                                  company, customers and invoices at a glance
  company create <name>                      create the company
  company rename <id> <name>                 rename a company
  customer add -name <name> -phone <phone>   add a customer to the company
  invoice list                               list invoices
  invoice create -customer <id> -amount <n>  create an invoice and its payment link
  link retry <invoice-id>                    create a payment link for an existing invoice
  link list                                  list payment links
`)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("login: -email is required")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, *email, password)
	if err != nil {
		return err
	}

	fmt.Printf("خوش آمدید، %s\n", user.DisplayName())
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("register: -email is required")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	password2, err := promptPassword("Repeat password: ")
	if err != nil {
		return err
	}

	user, err := a.session.Register(ctx, models.RegisterRequest{
		Email:     *email,
		Password:  password,
		Password2: password2,
		FirstName: *firstName,
		LastName:  *lastName,
	})
	if err != nil {
		return err
	}

	fmt.Printf("حساب کاربری ایجاد شد: %s\n", user.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	a.session.Start(ctx)
	user := a.session.User()
	if user == nil {
		return fmt.Errorf("not logged in")
	}
	fmt.Printf("%s <%s>\n", user.DisplayName(), user.Email)
	return nil
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	email := fs.String("email", "", "registered email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("reset-password: -email is required")
	}

	newPassword, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Repeat new password: ")
	if err != nil {
		return err
	}

	if err := a.session.ResetPassword(ctx, *email, newPassword, confirm); err != nil {
		return err
	}

	fmt.Println("رمز عبور با موفقیت تغییر کرد. حالا وارد شوید.")
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	dashboard, err := a.workflow.Bootstrap(ctx)
	if err != nil {
		return err
	}

	if dashboard.Company == nil {
		fmt.Println("هنوز شرکتی ثبت نشده است. با `poulin company create <name>` شروع کنید.")
		return nil
	}

	fmt.Printf("شرکت: %s\n", dashboard.Company.Name)
	fmt.Printf("مشتریان: %d\n", len(dashboard.Customers))
	fmt.Printf("فاکتورها: %d\n", len(dashboard.Invoices))
	for _, invoice := range dashboard.Invoices {
		printInvoice(invoice)
	}
	return nil
}

func (a *app) company(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("company: expected create or rename")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("company create: expected a name")
		}
		company, err := a.workflow.CreateCompany(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("شرکت «%s» ایجاد شد (#%d)\n", company.Name, company.ID)
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("company rename: expected an id and a name")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("company rename: invalid id %q", args[1])
		}
		company, err := a.workflow.RenameCompany(ctx, id, args[2])
		if err != nil {
			return err
		}
		fmt.Printf("شرکت #%d به «%s» تغییر نام یافت\n", company.ID, company.Name)
		return nil
	default:
		return fmt.Errorf("company: unknown subcommand %q", args[0])
	}
}

func (a *app) customer(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("customer: expected add")
	}

	fs := flag.NewFlagSet("customer add", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email (optional)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *name == "" || *phone == "" {
		return fmt.Errorf("customer add: -name and -phone are required")
	}

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	company, err := a.activeCompany(ctx)
	if err != nil {
		return err
	}

	customer, err := a.workflow.CreateCustomer(ctx, models.CreateCustomerRequest{
		Company:  company.ID,
		FullName: *name,
		Phone:    *phone,
		Email:    *email,
	})
	if err != nil {
		return err
	}

	fmt.Printf("مشتری «%s» افزوده شد (#%d)\n", customer.FullName, customer.ID)
	return nil
}

func (a *app) invoice(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("invoice: expected list or create")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		dashboard, err := a.workflow.Bootstrap(ctx)
		if err != nil {
			return err
		}
		for _, invoice := range dashboard.Invoices {
			printInvoice(invoice)
		}
		return nil
	case "create":
		fs := flag.NewFlagSet("invoice create", flag.ExitOnError)
		customerID := fs.Int64("customer", 0, "customer id")
		amount := fs.String("amount", "", "total amount, separators allowed")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		company, err := a.activeCompany(ctx)
		if err != nil {
			return err
		}

		result, err := a.workflow.CreateInvoiceWithLink(ctx, company.ID, *customerID, *amount)
		if err != nil {
			return err
		}

		if result.LinkErr != nil {
			// The invoice is committed either way; only the link needs
			// a manual follow-up.
			fmt.Printf("فاکتور #%d ایجاد شد\n", result.Invoice.ID)
			fmt.Println("فاکتور ایجاد شد اما خطا در ایجاد لینک پرداخت. می‌توانید به صورت دستی ایجاد کنید.")
			fmt.Printf("برای تلاش دوباره: poulin link retry %d\n", result.Invoice.ID)
			return nil
		}

		fmt.Printf("فاکتور ایجاد شد! لینک پرداخت: %s\n", result.Link.Display())
		return nil
	default:
		return fmt.Errorf("invoice: unknown subcommand %q", args[0])
	}
}

func (a *app) link(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("link: expected retry or list")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "retry":
		if len(args) < 2 {
			return fmt.Errorf("link retry: expected an invoice id")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("link retry: invalid invoice id %q", args[1])
		}
		link, err := a.workflow.RetryPaymentLink(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("لینک پرداخت ایجاد شد: %s\n", link.Display())
		return nil
	case "list":
		links, err := a.workflow.ListPaymentLinks(ctx)
		if err != nil {
			return err
		}
		for _, link := range links {
			fmt.Printf("#%d  invoice %d  %s  expires %s\n", link.ID, link.Invoice, link.Display(), link.ExpiresAt.Format("2006-01-02"))
		}
		return nil
	default:
		return fmt.Errorf("link: unknown subcommand %q", args[0])
	}
}

func (a *app) requireSession(ctx context.Context) error {
	a.session.Start(ctx)
	if a.session.Status() != service.StatusAuthenticated {
		return fmt.Errorf("not logged in; run `poulin login -email <email>` first")
	}
	return nil
}

func (a *app) activeCompany(ctx context.Context) (*models.Company, error) {
	dashboard, err := a.workflow.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if dashboard.Company == nil {
		return nil, fmt.Errorf("no company yet; run `poulin company create <name>` first")
	}
	return dashboard.Company, nil
}

func printInvoice(invoice models.Invoice) {
	link := "-"
	if invoice.PaymentLink != nil {
		link = invoice.PaymentLink.Display()
	}
	fmt.Printf("#%-4d %12s ریال  %-12s %s\n", invoice.ID, formatAmount(invoice.TotalAmount), persianStatus(invoice.Status), link)
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
