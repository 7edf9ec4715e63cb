package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/service"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

func parseListParams(c *fiber.Ctx) (service.ListParams, error) {
	page, err := parseIntQuery(c, "page", service.DefaultPage)
	if err != nil {
		return service.ListParams{}, err
	}
	perPage, err := parseIntQuery(c, "per_page", service.DefaultPerPage)
	if err != nil {
		return service.ListParams{}, err
	}
	return service.ListParams{Page: page, PerPage: perPage, Search: c.Query("search")}, nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, apperrors.NewValidationError(key+" must be an integer", map[string]any{key: val})
	}
	return parsed, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// actorID is empty for unauthenticated routes.
func actorID(c *fiber.Ctx) string {
	if claims, ok := auth.ClaimsFromContext(c); ok {
		return claims.SubjectID()
	}
	return ""
}

func listResponse[T, R any](page *service.Page[T], convert func(*T) R) dto.ListResponse[R] {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, convert(&page.Items[i]))
	}
	return dto.ListResponse[R]{Items: items, Total: page.Total, Page: page.Page, PerPage: page.PerPage}
}

func identity[T any](v *T) T { return *v }

func bulkDeleteResponse(result *service.BulkDeleteResult) dto.BulkDeleteResponse {
	skipped := make([]dto.SkippedResponse, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, dto.SkippedResponse{ID: s.ID, Reason: s.Reason})
	}
	return dto.BulkDeleteResponse{DeletedCount: result.DeletedCount, Skipped: skipped}
}

func optionalID(n dto.NullableString) service.OptionalID {
	return service.OptionalID{Set: n.Set, Value: n.Value}
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
