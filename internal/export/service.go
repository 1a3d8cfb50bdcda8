package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/foodgram/constants"
	"github.com/joseph-ayodele/foodgram/internal/repository"
	"github.com/joseph-ayodele/foodgram/internal/shoppinglist"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Artifact is a downloadable file.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service is a small façade over the cart reader that produces shopping list downloads.
type Service struct {
	cart    repository.ShoppingCartReader
	options shoppinglist.FormatOptions
	logger  *zap.Logger
}

func NewService(cart repository.ShoppingCartReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cart: cart, logger: logger}
}

// WithFormatOptions returns a copy of the service rendering text with opts.
func (s *Service) WithFormatOptions(opts shoppinglist.FormatOptions) *Service {
	cp := *s
	cp.options = opts
	return &cp
}

// ShoppingCartText renders the user's cart as the plain-text shopping list.
func (s *Service) ShoppingCartText(ctx context.Context, userID uuid.UUID, on time.Time) (*Artifact, error) {
	start := time.Now()

	report, err := s.report(ctx, userID, on)
	if err != nil {
		return nil, err
	}
	body := shoppinglist.FormatReportWith(s.options, report.Lines, report.Recipes, report.GeneratedOn)

	s.logger.Info("export.txt.ok",
		zap.Stringer("user_id", userID),
		zap.Int("lines", len(report.Lines)),
		zap.Int("recipes", len(report.Recipes)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return &Artifact{
		Filename:    constants.ShoppingCartFilename,
		ContentType: ContentTypeText,
		Body:        []byte(body),
	}, nil
}

// ShoppingCartXLSX renders the same shopping list as a workbook with
// a Products sheet and a Recipes sheet.
func (s *Service) ShoppingCartXLSX(ctx context.Context, userID uuid.UUID, on time.Time) (*Artifact, error) {
	start := time.Now()

	report, err := s.report(ctx, userID, on)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const (
		productsSheet = "Products"
		recipesSheet  = "Recipes"
	)
	if err := f.SetSheetName(f.GetSheetName(0), productsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(recipesSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(productsSheet)
	f.SetActiveSheet(activeIndex)

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(productsSheet, 1, 1, "Shopping list for "+report.GeneratedOn.Format("2006-01-02"))
	for i, h := range []string{"#", "Ingredient", "Amount", "Unit"} {
		write(productsSheet, i+1, 2, h)
	}
	for i, line := range report.Lines {
		row := i + 3
		write(productsSheet, 1, row, i+1)
		write(productsSheet, 2, row, shoppinglist.CapitalizeFirst(line.Name))
		write(productsSheet, 3, row, line.TotalAmount)
		write(productsSheet, 4, row, line.MeasurementUnit)
	}

	write(recipesSheet, 1, 1, "Recipe")
	for i, name := range report.Recipes {
		write(recipesSheet, 1, i+2, name)
	}

	_ = f.SetColWidth(productsSheet, "A", "A", 6)  // #
	_ = f.SetColWidth(productsSheet, "B", "B", 32) // ingredient
	_ = f.SetColWidth(productsSheet, "C", "D", 12) // amount, unit
	_ = f.SetColWidth(recipesSheet, "A", "A", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		zap.Stringer("user_id", userID),
		zap.Int("lines", len(report.Lines)),
		zap.Int("recipes", len(report.Recipes)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return &Artifact{
		Filename:    constants.ShoppingCartXLSXFilename,
		ContentType: ContentTypeXLSX,
		Body:        buf.Bytes(),
	}, nil
}

func (s *Service) report(ctx context.Context, userID uuid.UUID, on time.Time) (*shoppinglist.Report, error) {
	lines, err := s.cart.CartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	recipes, err := s.cart.CartRecipeNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart recipes: %w", err)
	}
	day := time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)
	return shoppinglist.NewReport(lines, recipes, day), nil
}
