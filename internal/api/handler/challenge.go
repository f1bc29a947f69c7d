package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"tournament/internal/services"
)

type groupChallenge struct {
	container *do.Injector
}

func (gr *groupChallenge) Show(c echo.Context) error {
	serviceChallenge, err := do.Invoke[*services.ServiceChallenge](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("challenge name is required"), errorx.Invalid))
	}

	initial, _ := strconv.ParseBool(c.QueryParam("initial"))

	view, err := serviceChallenge.GetChallenge(c.Request().Context(), name, initial)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, view, nil)
}

func (gr *groupChallenge) Settlement(c echo.Context) error {
	serviceChallenge, err := do.Invoke[*services.ServiceChallenge](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	receipt, err := serviceChallenge.GetSettlementReceipt(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, receipt, nil)
}
