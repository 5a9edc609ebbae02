package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/expense"
)

type fakeAnalyzer struct {
	doc expense.Document
	err error
}

func (a *fakeAnalyzer) Analyze(context.Context, *domain.Receipt) (expense.Document, error) {
	return a.doc, a.err
}

type fakeClassifier struct {
	annotations []domain.ItemAnnotation
	err         error
	calls       int
}

func (c *fakeClassifier) ClassifyItems(_ context.Context, _ []domain.LineItem) ([]domain.ItemAnnotation, error) {
	c.calls++
	return c.annotations, c.err
}

func groceryDocument() expense.Document {
	return expense.Document{
		ExpenseDocuments: []expense.ExpenseDocument{{
			SummaryFields: []expense.Field{
				{Type: "VENDOR_NAME", Value: "Corner Grocery", Confidence: 0.93},
				{Type: "TOTAL", Value: "$6.60"},
				{Type: "TAX", Value: "$2.10"},
			},
			LineItemGroups: []expense.LineItemGroup{{
				LineItems: []expense.LineItemRow{{
					Fields: []expense.Field{
						{Type: "ITEM", Value: "MLK WHL GAL"},
						{Type: "PRICE", Value: "$4.50"},
					},
				}},
			}},
		}},
		RawLines: []string{"CORNER GROCERY", "MLK WHL GAL 4.50", "TOTAL 6.60"},
	}
}

func uploadedReceipt(repo *fakeRepo, id string) {
	repo.receipts[id] = &domain.Receipt{
		ID:        id,
		Status:    domain.StatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	classifier := &fakeClassifier{
		annotations: []domain.ItemAnnotation{
			{CleanName: "Whole Milk", Category: "Dairy"},
			{CleanName: "Tax", Category: domain.CategoryOther},
		},
	}
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{doc: groceryDocument()}, classifier, expense.DefaultRules())

	if err := uc.ProcessByID(context.Background(), "r1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}

	receipt := repo.receipts["r1"]
	if receipt.Status != domain.StatusProcessed {
		t.Fatalf("status = %q, want processed", receipt.Status)
	}
	if receipt.Fields.MerchantName != "Corner Grocery" {
		t.Fatalf("merchant = %q", receipt.Fields.MerchantName)
	}
	if len(receipt.Items) != 2 {
		t.Fatalf("items = %+v, want milk plus synthetic tax", receipt.Items)
	}
	if receipt.Items[0].CleanName != "Whole Milk" || receipt.Items[0].Category != "Dairy" {
		t.Fatalf("first item annotation = %+v", receipt.Items[0])
	}
	if !strings.Contains(receipt.RawText, "MLK WHL GAL 4.50") {
		t.Fatalf("raw text = %q", receipt.RawText)
	}
}

func TestProcessByIDClassifierErrorFallsBack(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	classifier := &fakeClassifier{err: errors.New("model offline")}
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{doc: groceryDocument()}, classifier, expense.DefaultRules())

	if err := uc.ProcessByID(context.Background(), "r1"); err != nil {
		t.Fatalf("classifier failure must not fail processing: %v", err)
	}

	receipt := repo.receipts["r1"]
	if receipt.Status != domain.StatusProcessed {
		t.Fatalf("status = %q, want processed", receipt.Status)
	}
	for _, item := range receipt.Items {
		if item.CleanName != item.Name || item.Category != domain.CategoryOther {
			t.Fatalf("item %+v, want uniform raw-name fallback", item)
		}
	}
}

func TestProcessByIDClassifierSizeMismatchFallsBack(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	classifier := &fakeClassifier{
		annotations: []domain.ItemAnnotation{{CleanName: "Only One", Category: "Dairy"}},
	}
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{doc: groceryDocument()}, classifier, expense.DefaultRules())

	if err := uc.ProcessByID(context.Background(), "r1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}
	for _, item := range repo.receipts["r1"].Items {
		if item.Category != domain.CategoryOther {
			t.Fatalf("item %+v, want fallback after partial annotation", item)
		}
	}
}

func TestProcessByIDNoClassifier(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{doc: groceryDocument()}, nil, expense.DefaultRules())

	if err := uc.ProcessByID(context.Background(), "r1"); err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}
	if got := repo.receipts["r1"].Items[0].Category; got != domain.CategoryOther {
		t.Fatalf("category = %q, want fallback", got)
	}
}

func TestProcessByIDClaimRejectionPropagates(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	repo.claimErr = domain.ErrAlreadyProcessed
	analyzer := &fakeAnalyzer{doc: groceryDocument()}
	uc := NewProcessReceiptUseCase(repo, analyzer, nil, expense.DefaultRules())

	err := uc.ProcessByID(context.Background(), "r1")
	if !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("err = %v, want already-processed", err)
	}
	if repo.receipts["r1"].Status != domain.StatusUploaded {
		t.Fatalf("status moved without a claim: %q", repo.receipts["r1"].Status)
	}
}

func TestProcessByIDAnalyzerFailureMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{err: errors.New("ocr unreachable")}, nil, expense.DefaultRules())

	err := uc.ProcessByID(context.Background(), "r1")
	if err == nil {
		t.Fatalf("expected analyzer failure to surface")
	}
	if repo.receipts["r1"].Status != domain.StatusFailed {
		t.Fatalf("status = %q, want failed", repo.receipts["r1"].Status)
	}
	if !strings.Contains(repo.markFailedMsg, "ocr unreachable") {
		t.Fatalf("failure message = %q", repo.markFailedMsg)
	}
}

func TestProcessByIDMismatchIsAdvisory(t *testing.T) {
	doc := groceryDocument()
	doc.ExpenseDocuments[0].SummaryFields[1].Value = "$45.67"

	repo := newFakeRepo()
	uploadedReceipt(repo, "r1")
	uc := NewProcessReceiptUseCase(repo, &fakeAnalyzer{doc: doc}, nil, expense.DefaultRules())

	var mismatches int
	uc.OnMismatch = func() { mismatches++ }

	if err := uc.ProcessByID(context.Background(), "r1"); err != nil {
		t.Fatalf("mismatch must not fail processing: %v", err)
	}
	if repo.receipts["r1"].Status != domain.StatusProcessed {
		t.Fatalf("status = %q, want processed", repo.receipts["r1"].Status)
	}
	if mismatches != 1 {
		t.Fatalf("mismatch hook fired %d times, want 1", mismatches)
	}
}
