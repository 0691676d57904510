package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/devent/internal/checkout"
	"github.com/pfrederiksen/devent/internal/event"
)

// registrationFlags are the registration form fields.
type registrationFlags struct {
	eventID string
	name    string
	email   string
	phone   string
	tickets int
	address string
	notes   string
}

func (f *registrationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.eventID, "event", "", "Event ID (required)")
	cmd.Flags().StringVar(&f.name, "name", "", "Full name")
	cmd.Flags().StringVar(&f.email, "email", "", "Email address")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number, e.g. 08123456789 or +628123456789")
	cmd.Flags().IntVar(&f.tickets, "tickets", 1, "Number of tickets (1-10)")
	cmd.Flags().StringVar(&f.address, "address", "", "Address")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes for the organizer")
	cmd.MarkFlagRequired("event")
}

// draft builds a registration for the selected event.
func (f *registrationFlags) draft(a *app) (*event.Registration, error) {
	id, err := event.ParseID(f.eventID)
	if err != nil {
		return nil, err
	}
	evt, err := a.manager.EventByID(id)
	if err != nil {
		return nil, err
	}
	return event.NewRegistration(evt, f.name, f.email, f.phone, event.Quantity(f.tickets), f.address, f.notes), nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		f      registrationFlags
		method string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register for an event",
		Long: `Register for an event. Free registrations are stored immediately.
Paid registrations need --method to pay right away; without it the
registration waits for 'devent checkout method'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.draft(a)
			if err != nil {
				return err
			}

			co := a.checkout()
			pending, err := co.Start(*draft)
			if err != nil {
				return err
			}

			if pending.IsFree() {
				stored, err := co.CompleteFree()
				if err != nil {
					return err
				}
				return a.output(cmd, stored, func(w io.Writer) {
					fmt.Fprintln(w, "Registration completed.")
					writeRegistrationText(w, stored)
				})
			}

			if method == "" {
				return a.output(cmd, pending, func(w io.Writer) {
					fmt.Fprintf(w, "Registration for %s awaits payment of %s.\n", pending.EventTitle, pending.TotalPrice.Format())
					fmt.Fprintln(w, "Choose a wallet with: devent checkout method <dana|gopay|shopeepay>")
				})
			}

			if _, err := co.SelectMethod(method); err != nil {
				return err
			}
			stored, err := co.Confirm()
			if err != nil {
				return err
			}
			return a.output(cmd, stored, func(w io.Writer) {
				fmt.Fprintln(w, "Payment confirmed.")
				writeRegistrationText(w, stored)
			})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&method, "method", "", "Pay immediately with dana, gopay or shopeepay")
	return cmd
}

func newRegistrationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "List and manage registrations",
	}

	var eventID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List registrations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := a.manager.Registrations()
			if eventID != "" {
				id, err := event.ParseID(eventID)
				if err != nil {
					return err
				}
				regs = a.manager.RegistrationsByEventID(id)
			}
			sortRegistrations(regs)
			return a.output(cmd, regs, func(w io.Writer) { writeRegistrationsText(w, regs) })
		},
	}
	list.Flags().StringVar(&eventID, "event", "", "Only registrations for this event ID")

	show := &cobra.Command{
		Use:   "show <registration-id>",
		Short: "Show one registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.manager.RegistrationByID(args[0])
			if err != nil {
				return err
			}
			return a.output(cmd, r, func(w io.Writer) { writeRegistrationText(w, r) })
		},
	}

	del := &cobra.Command{
		Use:   "delete <registration-id>",
		Short: "Delete a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.DeleteRegistration(args[0]); err != nil {
				return err
			}
			result := map[string]string{"deleted": args[0]}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Registration %s deleted\n", args[0])
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for a registration with a mock e-wallet",
	}

	var f registrationFlags
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a checkout for a new registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.draft(a)
			if err != nil {
				return err
			}
			pending, err := a.checkout().Start(*draft)
			if err != nil {
				return err
			}
			return a.output(cmd, pending, func(w io.Writer) {
				fmt.Fprintf(w, "Checkout started for %s: %d ticket(s), %s\n",
					pending.EventTitle, pending.TicketQty, pending.TotalPrice.Format())
			})
		},
	}
	f.register(start)

	method := &cobra.Command{
		Use:   "method <dana|gopay|shopeepay>",
		Short: "Choose the e-wallet and show the exact amount to transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			co := a.checkout()
			m, err := co.SelectMethod(args[0])
			if err != nil {
				return err
			}
			amount, err := co.ExactAmount()
			if err != nil {
				return err
			}
			result := map[string]any{"method": m, "amount": amount}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Transfer exactly %s with %s, then run: devent checkout confirm\n", amount.Format(), m.DisplayName())
			})
		},
	}

	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the payment and store the registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stored, err := a.checkout().Confirm()
			if err != nil {
				return err
			}
			return a.output(cmd, stored, func(w io.Writer) {
				fmt.Fprintln(w, "Payment confirmed.")
				writeRegistrationText(w, stored)
			})
		},
	}

	free := &cobra.Command{
		Use:   "complete-free",
		Short: "Store a pending registration that costs nothing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stored, err := a.checkout().CompleteFree()
			if err != nil {
				return err
			}
			return a.output(cmd, stored, func(w io.Writer) {
				fmt.Fprintln(w, "Registration completed.")
				writeRegistrationText(w, stored)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the checkout in progress or the one just completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.checkoutStatus(cmd)
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Discard the checkout in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkout().Cancel(); err != nil {
				return err
			}
			return a.output(cmd, map[string]bool{"cancelled": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Checkout cancelled.")
			})
		},
	}

	cmd.AddCommand(start, method, confirm, free, status, cancel)
	return cmd
}

// CheckoutStatus is the result of checkout status.
type CheckoutStatus struct {
	State     string              `json:"state"`
	Pending   *event.Registration `json:"pending,omitempty"`
	Method    checkout.Method     `json:"method,omitempty"`
	Amount    event.Amount        `json:"amount,omitempty"`
	Completed *event.Registration `json:"completed,omitempty"`
}

func (a *app) checkoutStatus(cmd *cobra.Command) error {
	co := a.checkout()
	status := &CheckoutStatus{State: "idle"}

	if completed, err := co.Completed(); err == nil {
		status.State = "completed"
		status.Completed = completed
	}
	if pending, err := co.Pending(); err == nil {
		status.State = "pending"
		status.Pending = pending
		if m, err := co.SelectedMethod(); err == nil {
			status.Method = m
			if amount, err := co.ExactAmount(); err == nil {
				status.Amount = amount
			}
		}
	}

	return a.output(cmd, status, func(w io.Writer) {
		switch status.State {
		case "pending":
			p := status.Pending
			fmt.Fprintf(w, "Awaiting payment for %s: %d ticket(s), %s\n", p.EventTitle, p.TicketQty, p.TotalPrice.Format())
			if status.Method != "" {
				fmt.Fprintf(w, "Transfer exactly %s with %s\n", status.Amount.Format(), status.Method.DisplayName())
			} else {
				fmt.Fprintln(w, "No payment method selected.")
			}
		case "completed":
			fmt.Fprintln(w, "Registration completed.")
			writeRegistrationText(w, status.Completed)
		default:
			fmt.Fprintln(w, "No checkout in progress.")
		}
	})
}
