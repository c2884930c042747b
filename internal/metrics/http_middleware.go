package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Middleware records request count and latency labelled by the matched route
// pattern, so path parameters do not explode label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		ObserveHTTPRequest(c.Method(), route, strconv.Itoa(code), time.Since(start))
		return err
	}
}
