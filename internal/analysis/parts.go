package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/suppliers"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// maxActionComponents bounds the BOM rows quoted in an ai-action prompt.
const maxActionComponents = 10

// FindSupplier discovers suppliers for a part and renders the description and supplier table
func (s *Service) FindSupplier(ctx context.Context, req types.PartRequest) (string, error) {
	part := strings.TrimSpace(req.PartNumber)
	if part == "" {
		return "", apperrors.NewValidationError("partNumber is required")
	}

	text, err := s.generate(ctx, generation.Call{
		Template:  generation.TemplateSupplierDiscovery,
		Data:      generation.PartData{PartNumber: part},
		MaxTokens: generation.TokensSupplierDiscovery,
	})
	if err != nil {
		return "", err
	}
	return generation.EnsureExternalLinks(generation.ParseSupplierDiscovery(text, part).HTML()), nil
}

// ComponentInfo is the description and image shown for one part.
type ComponentInfo struct {
	PartNumber  string `json:"partNumber"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Error       string `json:"error,omitempty"`
}

// ComponentInfo never fails: a failed generation still yields the image and a datasheet hint.
func (s *Service) ComponentInfo(ctx context.Context, req types.PartRequest) ComponentInfo {
	part := strings.TrimSpace(req.PartNumber)
	info := ComponentInfo{PartNumber: part, ImageURL: s.images.ImageFor(part)}

	text, err := s.generate(ctx, generation.Call{
		Template:  generation.TemplateComponentInfo,
		Data:      generation.PartData{PartNumber: part},
		MaxTokens: generation.TokensComponentInfo,
	})
	if err != nil {
		s.logger.FallbackLogger("component-info", err.Error())
		info.Description = fmt.Sprintf("Unable to retrieve detailed information for component %s. "+
			"Please refer to the manufacturer's datasheet for complete specifications.", part)
		info.Error = apperrors.ToAppError(err).Message()
		return info
	}
	info.Description = strings.TrimSpace(text)
	return info
}

// EvaluateSuppliers ranks the candidate suppliers for a part
func (s *Service) EvaluateSuppliers(ctx context.Context, req types.SupplierEvaluationRequest) (suppliers.Evaluation, error) {
	if s.evaluator == nil {
		return suppliers.Evaluation{}, apperrors.NewInternalError("supplier evaluation is not configured", nil)
	}
	start := time.Now()
	eval, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return suppliers.Evaluation{}, err
	}
	s.logger.SystemLogger("supplier_evaluation",
		fmt.Sprintf("part=%s duration=%s", req.PartNumber, time.Since(start).Round(time.Millisecond)))
	return eval, nil
}

// AIAction drafts the content for one mitigation action. The text is returned unrendered.
func (s *Service) AIAction(ctx context.Context, req types.AIActionRequest) (string, error) {
	if strings.TrimSpace(req.ActionType) == "" || strings.TrimSpace(req.ActionDescription) == "" {
		return "", apperrors.NewValidationError("actionType and actionDescription are required")
	}

	text, err := s.generate(ctx, generation.Call{
		Template: generation.TemplateAIAction,
		Data: generation.AIActionData{
			ActionType:          req.ActionType,
			ActionDescription:   req.ActionDescription,
			ScenarioID:          req.ScenarioID,
			ScenarioDescription: req.ScenarioDescription.String(),
			AffectedComponents:  req.AffectedComponents.String(),
			UserContext:         req.UserContext.String(),
			ComponentDetails:    actionComponents(tabular.Parse(req.BOMData.String())),
		},
		MaxTokens: generation.TokensAIAction,
		Mode:      req.Mode,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func actionComponents(rs tabular.RowSet) string {
	var sb strings.Builder
	for _, row := range rs.Head(maxActionComponents).Rows {
		fmt.Fprintf(&sb, "- %s: %s from %s, Supplier: %s, Cost: $%s\n",
			row.String("N/A", tabular.PartNumberColumns...),
			row.String("N/A", tabular.DescriptionColumns...),
			row.String("N/A", tabular.ManufacturerColumns...),
			row.String("N/A", tabular.SupplierColumns...),
			row.String("N/A", tabular.UnitCostColumns...))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SupplyChainNews returns current headlines for a query, the default feeds when it is empty
func (s *Service) SupplyChainNews(ctx context.Context, req types.NewsRequest) []types.Headline {
	if s.news == nil {
		return []types.Headline{}
	}
	items := s.news.FetchHeadlines(ctx, strings.TrimSpace(req.Prompt))
	if items == nil {
		return []types.Headline{}
	}
	return items
}
