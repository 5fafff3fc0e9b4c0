package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"librarydesk/pkg/availability"
	"librarydesk/pkg/loanstatus"
	"librarydesk/pkg/models"
	"librarydesk/pkg/validate"
	"librarydesk/pkg/views"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = c.password("Password: "); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			user, err := views.NewAuth(c.deps).Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			c.printf("Signed in as %s (%s)\n", user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted for when empty)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var form validate.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.Password == "" {
				var err error
				if form.Password, err = c.password("Password: "); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				if form.ConfirmPassword, err = c.password("Confirm password: "); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			} else if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			user, err := views.NewAuth(c.deps).Register(cmd.Context(), form)
			if err != nil {
				return err
			}
			if user.Token == "" {
				c.printf("Account created for %s. Run `libcli login %s` to sign in.\n", form.Email, form.Email)
				return nil
			}
			c.printf("Account created. Signed in as %s\n", user.Email)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.FirstName, "first-name", "", "first name")
	flags.StringVar(&form.LastName, "last-name", "", "last name")
	flags.StringVar(&form.Email, "email", "", "email address")
	flags.StringVar(&form.Phone, "phone", "", "phone number")
	flags.StringVar(&form.Password, "password", "", "password (prompted for when empty)")
	flags.StringVar(&form.ConfirmPassword, "confirm-password", "", "password confirmation")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return views.NewAuth(c.deps).Logout()
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok := c.deps.API.Session().Current()
			if !ok {
				c.printf("Not signed in\n")
				return nil
			}
			c.printf("%s (%s)\n", user.Email, user.Role)
			return nil
		},
	}
}

func (c *cli) booksCmd() *cobra.Command {
	var q views.CatalogQuery
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog, nine books per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := views.NewCatalogView(c.deps)
			v.LoadCategories(cmd.Context())
			if err := v.Show(cmd.Context(), q); err != nil {
				return fmt.Errorf("%s: %w", v.State().Err, err)
			}
			state := v.State()

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORIES\tCOPIES\tSTATUS")
			for _, e := range state.Books {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\n", e.Book.ID, e.Book.Title, e.Book.Author,
					strings.Join(e.Book.CategoryNames, ", "), e.Book.AvailableQuantity, e.Book.Quantity, e.Availability)
			}
			w.Flush()
			c.printf("Page %d of %d\n", state.Query.Page, state.TotalPages)
			if len(state.Categories) > 0 {
				names := make([]string, 0, len(state.Categories))
				for _, cat := range state.Categories {
					names = append(names, fmt.Sprintf("%d=%s", cat.ID, cat.Name))
				}
				c.printf("Categories: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&q.Page, "page", 1, "page number, starting at 1")
	flags.StringVar(&q.Search, "search", "", "title or author contains")
	flags.Int64Var(&q.CategoryID, "category", 0, "only books in this category")
	return cmd
}

// detail loads one book for the show, borrow and reserve commands.
func (c *cli) detail(cmd *cobra.Command, arg string) (*views.BookDetailView, error) {
	id, err := parseID(arg, "book id")
	if err != nil {
		return nil, err
	}
	v := views.NewBookDetailView(c.deps, id)
	if err := v.Refresh(cmd.Context()); err != nil {
		return nil, fmt.Errorf("%s: %w", v.State().Err, err)
	}
	return v, nil
}

func (c *cli) bookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book, its copies and what you can do with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.detail(cmd, args[0])
			if err != nil {
				return err
			}
			state := v.State()
			b := state.Book
			c.printf("%s by %s\n", b.Title, b.Author)
			if b.ISBN != "" {
				c.printf("ISBN:       %s\n", b.ISBN)
			}
			if len(b.CategoryNames) > 0 {
				c.printf("Categories: %s\n", strings.Join(b.CategoryNames, ", "))
			}
			c.printf("Copies:     %d of %d available (%s)\n", b.AvailableQuantity, b.Quantity, state.Eligibility.AvailabilityLabel)
			for _, cp := range b.Copies {
				c.printf("  #%d %s %s\n", cp.ID, cp.Barcode, cp.Status)
			}
			c.printf("Action:     %s\n", state.Eligibility.Label)
			if state.Eligibility.CanReserve {
				c.printf("            %s\n", availability.LabelReserve)
			}
			return nil
		},
	}
}

func (c *cli) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow an available (or reserved) copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.detail(cmd, args[0])
			if err != nil {
				return err
			}
			loan, err := v.Borrow(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("Borrowed %q (loan %d), due %s\n", v.State().Book.Title, loan.ID, loan.DueDate.Format(dateLayout))
			return nil
		},
	}
}

func (c *cli) reserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <book-id>",
		Short: "Reserve a book that has no available copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.detail(cmd, args[0])
			if err != nil {
				return err
			}
			r, err := v.Reserve(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("Reserved %q (reservation %d, %s)\n", v.State().Book.Title, r.ID, r.Status)
			return nil
		},
	}
}

func (c *cli) library(cmd *cobra.Command) (*views.MyLibraryView, error) {
	v := views.NewMyLibraryView(c.deps)
	if err := v.Refresh(cmd.Context()); err != nil {
		if msg := v.State().Err; msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}
	return v, nil
}

func (c *cli) libraryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "Show your loans, fines and reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.library(cmd)
			if err != nil {
				return err
			}
			state := v.State()

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Current loans")
			fmt.Fprintln(w, "LOAN\tBOOK\tBORROWED\tDUE\tSTATUS")
			for _, row := range state.Active {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", row.ID, row.BookTitle,
					row.LoanDate.Format(dateLayout), row.DueDate.Format(dateLayout), row.Bucket)
			}
			fmt.Fprintln(w, "\nHistory")
			fmt.Fprintln(w, "LOAN\tBOOK\tBORROWED\tRETURNED\tFINE")
			for _, row := range state.History {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", row.ID, row.BookTitle,
					row.LoanDate.Format(dateLayout), returnedOn(row.Loan), fine(row.Loan))
			}
			fmt.Fprintln(w, "\nReservations")
			fmt.Fprintln(w, "ID\tBOOK\tREQUESTED\tSTATUS")
			for _, r := range state.Reservations {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.BookTitle, r.RequestDate.Format(dateLayout), r.Status)
			}
			w.Flush()

			if len(state.Fines) > 0 {
				var total float64
				for _, row := range state.Fines {
					total += row.FineAmount
				}
				c.printf("\nOutstanding fines: %d loan(s), $%.2f\n", len(state.Fines), total)
			}
			return nil
		},
	}
}

func returnedOn(l models.Loan) string {
	if l.ReturnDate == nil {
		return "-"
	}
	return l.ReturnDate.Format(dateLayout)
}

func fine(l models.Loan) string {
	if l.FineAmount <= 0 {
		return "-"
	}
	return fmt.Sprintf("$%.2f", l.FineAmount)
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "loan id")
			if err != nil {
				return err
			}
			loan, err := views.NewMyLibraryView(c.deps).Return(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.printf("Returned loan %d\n", loan.ID)
			if loan.FineAmount > 0 {
				c.printf("Late fee: $%.2f\n", loan.FineAmount)
			}
			return nil
		},
	}
}

func (c *cli) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel a pending reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "reservation id")
			if err != nil {
				return err
			}
			v, err := c.library(cmd)
			if err != nil {
				return err
			}
			if err := v.CancelReservation(cmd.Context(), id); err != nil {
				return err
			}
			c.printf("Cancelled reservation %d\n", id)
			return nil
		},
	}
}

// shelfCmd builds the favorites and reading-list commands, which share a shape.
func (c *cli) shelfCmd(name, short string) *cobra.Command {
	type shelf struct {
		list   func(*cobra.Command) ([]models.ShelfEntry, error)
		add    func(*cobra.Command, int64) error
		remove func(*cobra.Command, int64) error
	}
	ops := func() shelf {
		api := c.deps.API
		if name == "favorites" {
			return shelf{
				list:   func(cmd *cobra.Command) ([]models.ShelfEntry, error) { return api.Favorites(cmd.Context()) },
				add:    func(cmd *cobra.Command, id int64) error { return api.AddFavorite(cmd.Context(), id) },
				remove: func(cmd *cobra.Command, id int64) error { return api.RemoveFavorite(cmd.Context(), id) },
			}
		}
		return shelf{
			list:   func(cmd *cobra.Command) ([]models.ShelfEntry, error) { return api.ReadingList(cmd.Context()) },
			add:    func(cmd *cobra.Command, id int64) error { return api.AddToReadingList(cmd.Context(), id) },
			remove: func(cmd *cobra.Command, id int64) error { return api.RemoveFromReadingList(cmd.Context(), id) },
		}
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ops().list(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BOOK\tTITLE\tAUTHOR\tADDED")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.BookID, e.BookTitle, e.BookAuthor, e.AddedAt.Format(dateLayout))
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <book-id>",
			Short: "Add a book to " + name,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "book id")
				if err != nil {
					return err
				}
				return ops().add(cmd, id)
			},
		},
		&cobra.Command{
			Use:   "remove <book-id>",
			Short: "Remove a book from " + name,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "book id")
				if err != nil {
					return err
				}
				return ops().remove(cmd, id)
			},
		},
	)
	return cmd
}

func (c *cli) ratingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings <book-id>",
		Short: "Show the ratings of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			ratings, err := c.deps.API.BookRatings(cmd.Context(), id)
			if err != nil {
				return err
			}
			avg, err := c.deps.API.AverageRating(cmd.Context(), id)
			if err != nil {
				c.deps.Logger.Printf("failed to load average rating: %v", err)
			}
			c.printf("Average %.1f from %d rating(s)\n", avg, len(ratings))
			for _, r := range ratings {
				c.printf("  %d/5 %s: %s\n", r.Score, r.MemberName, r.Comment)
			}
			return nil
		},
	}
}

func (c *cli) rateCmd() *cobra.Command {
	var req models.RatingRequest
	cmd := &cobra.Command{
		Use:   "rate <book-id>",
		Short: "Rate a book from 1 to 5",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			if req.Score < 1 || req.Score > 5 {
				return errors.New("score must be between 1 and 5")
			}
			req.BookID = id
			if _, err := c.deps.API.AddRating(cmd.Context(), req); err != nil {
				return err
			}
			c.printf("Thanks for rating book %d\n", id)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Score, "score", 0, "score from 1 to 5")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "optional comment")
	return cmd
}

// bucketLabel is used for admin loan listings, where history rows show too.
func bucketLabel(row views.LoanRow) string {
	if row.Bucket == loanstatus.Returned && row.FineAmount > 0 {
		return fmt.Sprintf("%s (fine $%.2f)", row.Bucket, row.FineAmount)
	}
	return string(row.Bucket)
}
