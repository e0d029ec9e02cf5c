package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/config"
	"github.com/MikeMC777/enos-storefront/internal/logx"
	"github.com/MikeMC777/enos-storefront/internal/order"
	"github.com/MikeMC777/enos-storefront/internal/payment"
	"github.com/MikeMC777/enos-storefront/internal/remote"
)

// app carries what the root command builds before any subcommand runs.
type app struct {
	customer string
	baseURL  string

	log *zap.Logger
	ext *remote.Ext
	sh  *shell
}

// close releases the shell, the client and the logger. It is safe to call
// when nothing was built.
func (a *app) close() {
	if a.sh != nil {
		a.sh.close()
		a.sh = nil
	}
	if a.ext != nil {
		_ = a.ext.Close()
		a.ext = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
		a.log = nil
	}
}

// setup loads the configuration and wires the shell for one command. Flags
// given on the command line win over the environment.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("customer") {
		a.customer = cfg.Client.CustomerID
	}
	if !cmd.Flags().Changed("api") {
		a.baseURL = cfg.Client.BaseURL
	}

	a.log, err = logx.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.ext, err = remote.NewExt(cfg.Client.HealthAddr, a.baseURL, a.customer, cfg.Client.Timeout)
	if err != nil {
		return err
	}
	a.sh, err = newShell(a.ext, cfg, a.log, cmd.OutOrStdout())
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront-shell",
		Short: "Drive the storefront core against a running storefront-api",
		Long: "storefront-shell browses the catalog, manages the cart, checks out and\n" +
			"reviews orders and quotes through the storefront API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.customer, "customer", "", "customer id sent with every request (default $CLIENT_CUSTOMER_ID)")
	root.PersistentFlags().StringVar(&a.baseURL, "api", "", "storefront API base URL (default $CLIENT_BASE_URL)")

	root.AddCommand(
		&cobra.Command{
			Use:   "ping",
			Short: "Check the API health service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.ping(cmd.Context())
			},
		},
		newCatalogCmd(a),
		newProductCmd(a),
		&cobra.Command{
			Use:   "recent",
			Short: "List recently viewed products",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.recentlyViewed(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "cart",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.showCart(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "add <product-id> [quantity]",
			Short: "Add a product to the cart",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				qty := 1
				if len(args) == 2 {
					n, err := parseQuantity(args[1])
					if err != nil {
						return err
					}
					qty = n
				}
				return a.sh.add(cmd.Context(), args[0], qty)
			},
		},
		&cobra.Command{
			Use:   "set <line-id> <quantity>",
			Short: "Change the quantity of a cart line, 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				qty, err := parseQuantity(args[1])
				if err != nil {
					return err
				}
				return a.sh.set(cmd.Context(), args[0], qty)
			},
		},
		&cobra.Command{
			Use:     "rm <line-id>",
			Aliases: []string{"remove"},
			Short:   "Remove a cart line",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.remove(cmd.Context(), args[0])
			},
		},
		newCheckoutCmd(a),
		newOrdersCmd(a),
		&cobra.Command{
			Use:   "quotes",
			Short: "List quotes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.listQuotes(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "quote",
			Short: "Create a quote from the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sh.createQuote(cmd.Context())
			},
		},
	)
	return root
}

func newCatalogCmd(a *app) *cobra.Command {
	var opts browseOptions
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sh.browse(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.term, "query", "q", "", "search term")
	f.StringVar(&opts.category, "category", "", "category (product family)")
	f.BoolVar(&opts.top, "top", false, "top sellers only")
	f.BoolVar(&opts.advanced, "advanced", false, "search on the server")
	f.IntVar(&opts.page, "page", 1, "page number, from 1")
	return cmd
}

func newProductCmd(a *app) *cobra.Command {
	var addQty int
	cmd := &cobra.Command{
		Use:   "product <product-id>",
		Short: "Show a product, optionally adding it to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addQty < 0 {
				return errors.New("--add must not be negative")
			}
			return a.sh.showProduct(cmd.Context(), args[0], addQty)
		},
	}
	cmd.Flags().IntVar(&addQty, "add", 0, "add this many units to the cart")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	req := order.NewCheckoutRequest()
	var card payment.Form
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sh.placeOrder(cmd.Context(), req, card)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Contact.FirstName, "first", "", "first name")
	f.StringVar(&req.Contact.LastName, "last", "", "last name")
	f.StringVar(&req.Contact.Email, "email", "", "email")
	f.StringVar(&req.Contact.Phone, "phone", "", "phone")
	f.StringVar(&req.Contact.Company, "company", "", "company")
	f.StringVar(&req.Shipping.Street, "street", "", "shipping street")
	f.StringVar(&req.Shipping.City, "city", "", "shipping city")
	f.StringVar(&req.Shipping.State, "state", "", "shipping state")
	f.StringVar(&req.Shipping.PostalCode, "postal", "", "shipping postal code")
	f.StringVar(&req.Shipping.Country, "country", req.Shipping.Country, "shipping country")
	f.StringVar(&card.CardNumber, "card", "", "card number")
	f.StringVar(&card.CardholderName, "holder", "", "cardholder name")
	f.StringVar(&card.Expiry, "exp", "", "expiry MM/YY")
	f.StringVar(&card.CVC, "cvc", "", "card security code")
	return cmd
}

func newOrdersCmd(a *app) *cobra.Command {
	var field, dir string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sh.orders(cmd.Context(), order.SortField(field), order.Direction(dir))
		},
	}
	cmd.Flags().StringVar(&field, "sort", string(order.SortEffectiveDate), "OrderNumber, EffectiveDate, Status or TotalAmount")
	cmd.Flags().StringVar(&dir, "dir", string(order.Desc), "asc or desc")
	return cmd
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	return n, nil
}

// execute runs the shell with args, writing to out.
func execute(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	defer a.close()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}
