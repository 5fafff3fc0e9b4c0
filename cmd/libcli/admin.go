package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"librarydesk/pkg/models"
	"librarydesk/pkg/views"

	"github.com/spf13/cobra"
)

var errAdminOnly = errors.New("admin access required, sign in with an admin account")

func (c *cli) requireAdmin() error {
	sess := c.deps.API.Session()
	if !sess.IsAuthenticated() {
		return views.ErrNotLoggedIn
	}
	if !sess.IsAdmin() {
		return errAdminOnly
	}
	return nil
}

// adminRunE guards every admin subcommand.
func (c *cli) adminRunE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.requireAdmin(); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Library desk administration",
	}
	cmd.AddCommand(
		c.statsCmd(),
		c.adminBooksCmd(),
		c.adminLoansCmd(),
		c.copiesCmd(),
		c.categoriesCmd(),
		c.publishersCmd(),
		c.reportsCmd(),
	)
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard counters",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			err := d.Load(cmd.Context())
			s := d.Stats()
			c.printf("Books:       %d\n", s.TotalBooks)
			c.printf("Loans:       %d (%d active, %d overdue)\n", s.TotalLoans, s.ActiveLoans, s.OverdueLoans)
			c.printf("Categories:  %d\n", s.TotalCategories)
			c.printf("Publishers:  %d\n", s.TotalPublishers)
			return err
		}),
	}
}

func (c *cli) adminBooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, save and delete books",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			if err := d.FetchBooks(cmd.Context()); err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tCOPIES")
			for _, b := range d.State().Books {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.AvailableQuantity, b.Quantity)
			}
			return w.Flush()
		}),
	}
	cmd.AddCommand(c.saveBookCmd(), c.deleteBookCmd())
	return cmd
}

func (c *cli) saveBookCmd() *cobra.Command {
	var (
		id        int64
		book      models.Book
		publisher int64
		quantity  int
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a book, or update one with --id; missing copies are added",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			target := book
			if id != 0 {
				if err := d.FetchBooks(cmd.Context()); err != nil {
					return err
				}
				existing, ok := findBook(d.State().Books, id)
				if !ok {
					return fmt.Errorf("book %d not found", id)
				}
				target = mergeBook(existing, book, cmd)
				if !cmd.Flags().Changed("quantity") {
					quantity = existing.Quantity
				}
			}
			if cmd.Flags().Changed("publisher") {
				target.PublisherID = &publisher
			}

			saved, err := d.SaveBook(cmd.Context(), target, quantity)
			var partial *views.PartialCopyError
			if errors.As(err, &partial) {
				c.printf("Saved book %d but only %d of %d copies were added\n", saved.ID, partial.Created, partial.Requested)
			}
			if err != nil {
				return err
			}
			c.printf("Saved book %d %q\n", saved.ID, saved.Title)
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.Int64Var(&id, "id", 0, "id of the book to update")
	flags.StringVar(&book.Title, "title", "", "title")
	flags.StringVar(&book.Author, "author", "", "author")
	flags.StringVar(&book.ISBN, "isbn", "", "ISBN")
	flags.IntVar(&book.PublishYear, "year", 0, "publication year")
	flags.IntVar(&book.PageCount, "pages", 0, "page count")
	flags.Int64Var(&publisher, "publisher", 0, "publisher id")
	flags.Int64SliceVar(&book.CategoryIDs, "category", nil, "category ids")
	flags.IntVar(&quantity, "quantity", 1, "number of copies the book should have")
	return cmd
}

func findBook(books []models.Book, id int64) (models.Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

// mergeBook applies only the flags the user actually set.
func mergeBook(existing, changes models.Book, cmd *cobra.Command) models.Book {
	flags := cmd.Flags()
	if flags.Changed("title") {
		existing.Title = changes.Title
	}
	if flags.Changed("author") {
		existing.Author = changes.Author
	}
	if flags.Changed("isbn") {
		existing.ISBN = changes.ISBN
	}
	if flags.Changed("year") {
		existing.PublishYear = changes.PublishYear
	}
	if flags.Changed("pages") {
		existing.PageCount = changes.PageCount
	}
	if flags.Changed("category") {
		existing.CategoryIDs = changes.CategoryIDs
	}
	return existing
}

func (c *cli) deleteBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book id")
			if err != nil {
				return err
			}
			if err := views.NewAdminDashboard(c.deps).DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			c.printf("Deleted book %d\n", id)
			return nil
		}),
	}
}

func (c *cli) adminLoansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List every loan",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			if err := d.FetchLoans(cmd.Context()); err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LOAN\tMEMBER\tBOOK\tDUE\tSTATUS")
			for _, row := range d.State().Loans {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", row.ID, row.MemberEmail, row.BookTitle,
					row.DueDate.Format(dateLayout), bucketLabel(row))
			}
			return w.Flush()
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "return <loan-id>",
		Short: "Check a loan back in",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "loan id")
			if err != nil {
				return err
			}
			if err := views.NewAdminDashboard(c.deps).ReturnLoan(cmd.Context(), id); err != nil {
				return err
			}
			c.printf("Returned loan %d\n", id)
			return nil
		}),
	})
	return cmd
}

func (c *cli) copiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copies <book-id>",
		Short: "List the copies of a book",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			m, err := c.copyManager(cmd, args[0])
			if err != nil {
				return err
			}
			return c.printCopies(m.Copies())
		}),
	}

	var (
		count   int
		barcode string
	)
	add := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add one copy (optionally with --barcode) or -n copies",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			m, err := c.copyManager(cmd, args[0])
			if err != nil {
				return err
			}
			if count > 1 {
				created, err := m.AddN(cmd.Context(), count)
				c.printf("Added %d of %d copies\n", created, count)
				return err
			}
			created, err := m.Add(cmd.Context(), barcode)
			if err != nil {
				return err
			}
			c.printf("Added copy %d %s\n", created.ID, created.Barcode)
			return nil
		}),
	}
	add.Flags().IntVarP(&count, "count", "n", 1, "number of copies to add")
	add.Flags().StringVar(&barcode, "barcode", "", "barcode of the single copy")

	remove := &cobra.Command{
		Use:   "delete <book-id> <copy-id>",
		Short: "Delete a copy that is not on loan",
		Args:  cobra.ExactArgs(2),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			m, err := c.copyManager(cmd, args[0])
			if err != nil {
				return err
			}
			copyID, err := parseID(args[1], "copy id")
			if err != nil {
				return err
			}
			for _, row := range m.Copies() {
				if row.ID == copyID {
					if err := m.Delete(cmd.Context(), row.Copy); err != nil {
						return err
					}
					c.printf("Deleted copy %d\n", copyID)
					return nil
				}
			}
			return fmt.Errorf("copy %d not found", copyID)
		}),
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func (c *cli) copyManager(cmd *cobra.Command, arg string) (*views.CopyManager, error) {
	bookID, err := parseID(arg, "book id")
	if err != nil {
		return nil, err
	}
	m := views.NewCopyManager(c.deps, bookID)
	if err := m.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *cli) printCopies(rows []views.CopyRow) error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COPY\tBARCODE\tSTATUS\tDELETABLE")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", row.ID, row.Barcode, row.Status, row.Deletable)
	}
	return w.Flush()
}

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List, save and delete categories",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			if err := d.FetchCategories(cmd.Context()); err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tDESCRIPTION")
			for _, cat := range d.State().Categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Status, cat.Description)
			}
			return w.Flush()
		}),
	}

	var (
		category models.Category
		status   string
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a category, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			category.Status = models.CategoryStatus(strings.ToUpper(status))
			saved, err := views.NewAdminDashboard(c.deps).SaveCategory(cmd.Context(), category)
			if err != nil {
				return err
			}
			c.printf("Saved category %d %q\n", saved.ID, saved.Name)
			return nil
		}),
	}
	save.Flags().Int64Var(&category.ID, "id", 0, "id of the category to update")
	save.Flags().StringVar(&category.Name, "name", "", "name")
	save.Flags().StringVar(&category.Description, "description", "", "description")
	save.Flags().StringVar(&status, "status", string(models.CategoryActive), "ACTIVE or INACTIVE")

	cmd.AddCommand(save, c.deleteCmd("category", func(d *views.AdminDashboard, cmd *cobra.Command, id int64) error {
		return d.DeleteCategory(cmd.Context(), id)
	}))
	return cmd
}

func (c *cli) publishersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publishers",
		Short: "List, save and delete publishers",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			d := views.NewAdminDashboard(c.deps)
			if err := d.FetchPublishers(cmd.Context()); err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOUNTRY\tFOUNDED")
			for _, p := range d.State().Publishers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Name, p.Country, p.FoundedYear)
			}
			return w.Flush()
		}),
	}

	var publisher models.Publisher
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a publisher, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			saved, err := views.NewAdminDashboard(c.deps).SavePublisher(cmd.Context(), publisher)
			if err != nil {
				return err
			}
			c.printf("Saved publisher %d %q\n", saved.ID, saved.Name)
			return nil
		}),
	}
	save.Flags().Int64Var(&publisher.ID, "id", 0, "id of the publisher to update")
	save.Flags().StringVar(&publisher.Name, "name", "", "name")
	save.Flags().StringVar(&publisher.Country, "country", "", "country")
	save.Flags().IntVar(&publisher.FoundedYear, "founded", 0, "founding year")

	cmd.AddCommand(save, c.deleteCmd("publisher", func(d *views.AdminDashboard, cmd *cobra.Command, id int64) error {
		return d.DeletePublisher(cmd.Context(), id)
	}))
	return cmd
}

func (c *cli) deleteCmd(what string, del func(*views.AdminDashboard, *cobra.Command, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <" + what + "-id>",
		Short: "Delete a " + what,
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], what+" id")
			if err != nil {
				return err
			}
			if err := del(views.NewAdminDashboard(c.deps), cmd, id); err != nil {
				return err
			}
			c.printf("Deleted %s %d\n", what, id)
			return nil
		}),
	}
}

func (c *cli) reportsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Most-read categories, most active members and copy status distribution",
		Args:  cobra.NoArgs,
		RunE: c.adminRunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			categories, err := c.deps.API.MostReadCategories(ctx, limit)
			if err != nil {
				return err
			}
			members, err := c.deps.API.MostActiveMembers(ctx, limit)
			if err != nil {
				return err
			}
			statuses, err := c.deps.API.BookStatusDistribution(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Most-read categories")
			for _, r := range categories {
				fmt.Fprintf(w, "  %s\t%d\n", r.CategoryName, r.LoanCount)
			}
			fmt.Fprintln(w, "Most active members")
			for _, r := range members {
				fmt.Fprintf(w, "  %s\t%d\n", r.MemberName, r.LoanCount)
			}
			fmt.Fprintln(w, "Copies by status")
			for _, r := range statuses {
				fmt.Fprintf(w, "  %s\t%d\n", r.Status, r.Count)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows per report")
	return cmd
}
