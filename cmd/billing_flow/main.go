package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/services"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/shopspring/decimal"
)

// This example walks one society through a billing month on the memory store:
// 1. Create a society with two flats and a resident
// 2. Configure the rate and a late fee
// 3. Generate the March bills
// 4. Record a partial payment and settle the rest
// 5. Run the overdue pass and print the ledgers and the dashboard

func main() {
	logger.Disable()
	ctx := context.Background()

	svc := services.New(store.NewMemoryStore())

	manager := uuid.New()
	resident := uuid.New()

	fmt.Println("=== Society Maintenance - Billing Flow Example ===")
	fmt.Println()

	// Step 1: Society, flats and members
	fmt.Println("Step 1: Society Setup")
	fmt.Println("---------------------")

	society, err := svc.Society.CreateSociety(ctx, manager, services.CreateSocietyRequest{
		Name:       "Green Meadows",
		Address:    "12 Lake Road, Pune",
		TotalFlats: 2,
	})
	must(err)
	fmt.Printf("Society: %s (%s)\n", society.Name, society.ID)

	flatA, err := svc.Society.AddFlat(ctx, manager, society.ID, services.AddFlatRequest{
		FlatNumber: "A-101", Floor: 1, Wing: "A", Area: decimal.NewFromInt(1000), FlatType: "2BHK",
	})
	must(err)
	flatB, err := svc.Society.AddFlat(ctx, manager, society.ID, services.AddFlatRequest{
		FlatNumber: "B-202", Floor: 2, Wing: "B", Area: decimal.NewFromInt(1500), FlatType: "3BHK",
	})
	must(err)

	_, err = svc.Society.AddMembership(ctx, manager, society.ID, services.AddMembershipRequest{
		UserID: resident, Role: models.RoleMember,
	})
	must(err)
	_, err = svc.Society.AssignFlatMember(ctx, manager, society.ID, services.AssignFlatMemberRequest{
		FlatID: flatA.ID, UserID: resident, RelationType: "Owner", IsPrimary: true,
	})
	must(err)
	fmt.Printf("Flats: %s (%s sqft), %s (%s sqft)\n\n", flatA.FlatNumber, flatA.Area, flatB.FlatNumber, flatB.Area)

	// Step 2: Settings
	fmt.Println("Step 2: Maintenance Settings")
	fmt.Println("----------------------------")

	rate := decimal.NewFromInt(5)
	dueDay := 10
	lateFee := decimal.NewFromInt(100)
	lateFeeType := models.LateFeeFlat
	settings, err := svc.Settings.Update(ctx, manager, society.ID, services.UpdateSettingsRequest{
		RatePerArea:   &rate,
		DueDay:        &dueDay,
		LateFeeAmount: &lateFee,
		LateFeeType:   &lateFeeType,
	})
	must(err)
	fmt.Printf("Rate: Rs.%s/sqft, due day %d, late fee Rs.%s (%s)\n\n",
		settings.RatePerArea, settings.DueDay, settings.LateFeeAmount, settings.LateFeeType)

	// Step 3: Bills
	fmt.Println("Step 3: Generate March 2026 Bills")
	fmt.Println("---------------------------------")

	generate := services.GenerateRequest{Period: models.MonthlyPeriod(3, 2026)}
	preview, err := svc.Bill.Preview(ctx, manager, society.ID, generate)
	must(err)
	for _, b := range preview.BillsPreview {
		fmt.Printf("  %s: %s sqft x Rs.%s = Rs.%s\n", b.FlatNumber, b.Area, b.RatePerArea, b.FinalAmount.StringFixed(2))
	}

	result, err := svc.Bill.Generate(ctx, manager, society.ID, generate)
	must(err)
	fmt.Printf("Created %d bills for %s, total Rs.%s\n\n", result.BillsCreated, result.Period, result.TotalAmount.StringFixed(2))

	bills, err := svc.Bill.ListBills(ctx, manager, society.ID, services.ListBillsRequest{FlatID: flatA.ID})
	must(err)
	billA := bills[0]

	// Step 4: Payments
	fmt.Println("Step 4: Payments for A-101")
	fmt.Println("--------------------------")

	for _, amount := range []int64{3000, 2000} {
		paid, err := svc.Payment.Record(ctx, manager, society.ID, services.RecordPaymentRequest{
			FlatID:      flatA.ID,
			BillIDs:     []uuid.UUID{billA.ID},
			AmountPaid:  decimal.NewFromInt(amount),
			PaymentMode: models.PaymentModeUPI,
			PaymentDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		})
		must(err)
		fmt.Printf("  %s: Rs.%s -> bill %s\n",
			paid.Payment.ReceiptNumber, paid.AllocatedAmount.StringFixed(2), paid.Allocations[0].Status)
	}
	fmt.Println()

	// Step 5: Overdue run, then reports. B-202 is unpaid past its due date.
	fmt.Println("Step 5: Overdue Run")
	fmt.Println("-------------------")

	overdue, err := svc.Overdue.ProcessAll(ctx)
	must(err)
	for _, r := range overdue {
		fmt.Printf("Overdue bills: %d, late fees: %d (Rs.%s)\n",
			r.OverdueBillsProcessed, r.LateFeesCharged, r.LateFeeTotal.StringFixed(2))
	}
	fmt.Println()

	for _, flat := range []*models.Flat{flatA, flatB} {
		ledger, err := svc.Ledger.FlatLedger(ctx, manager, society.ID, flat.ID)
		must(err)
		fmt.Printf("Ledger %s\n", ledger.FlatNumber)
		for _, e := range ledger.Entries {
			fmt.Printf("  #%d %-16s dr %10s cr %10s bal %10s\n", e.Sequence, e.EntryType,
				e.DebitAmount.StringFixed(2), e.CreditAmount.StringFixed(2), e.BalanceAfterEntry.StringFixed(2))
		}
		fmt.Printf("  outstanding: Rs.%s\n", ledger.OutstandingBalance.StringFixed(2))
	}
	fmt.Println()

	dash, err := svc.Report.CollectionDashboard(ctx, manager, society.ID, 2026, 3)
	must(err)
	fmt.Printf("March 2026: billed Rs.%s, collected Rs.%s (%s%%), outstanding Rs.%s\n",
		dash.TotalBilled.StringFixed(2), dash.TotalCollected.StringFixed(2),
		dash.CollectionPercentage.StringFixed(2), dash.TotalOutstanding.StringFixed(2))

	problems, err := svc.Ledger.VerifySociety(ctx, manager, society.ID)
	must(err)
	fmt.Printf("Ledger verification: %d problems\n", len(problems))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
