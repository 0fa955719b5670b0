// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/danielhkuo/pollbase/actions"
	"github.com/danielhkuo/pollbase/middleware"
	"github.com/danielhkuo/pollbase/models"
)

// writeAction writes an action envelope. Successful actions use
// successStatus; failures use the status of their error kind.
func writeAction(w http.ResponseWriter, r *http.Request, resp models.ActionResponse, successStatus int, loginURL string) {
	if resp.Success {
		middleware.JSONResponse(w, successStatus, resp)
		return
	}

	kind := actions.Kind(resp.Code)
	if kind == actions.KindAuthRequired && loginURL != "" && middleware.IsFormRequest(r) {
		http.Redirect(w, r, loginRedirect(loginURL, r), http.StatusSeeOther)
		return
	}
	middleware.JSONResponse(w, kind.Status(), resp)
}

// writeFailure writes err as a failed envelope
func writeFailure(w http.ResponseWriter, r *http.Request, err error, loginURL string) {
	writeAction(w, r, actions.Failure(err), 0, loginURL)
}

// loginRedirect appends the requested path so the login page can send the
// user back
func loginRedirect(loginURL string, r *http.Request) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("next", r.URL.Path)
	u.RawQuery = q.Encode()
	return u.String()
}

// decodePollRequest reads a poll payload from JSON or a form post.
// Forms carry one "option" field per option.
func decodePollRequest(r *http.Request) (models.PollRequest, error) {
	var req models.PollRequest
	if middleware.IsFormRequest(r) {
		if err := middleware.ParseFormBody(r); err != nil {
			return req, err
		}
		req.Title = r.PostForm.Get("title")
		req.Description = r.PostForm.Get("description")
		for _, text := range r.PostForm["option"] {
			req.Options = append(req.Options, models.OptionInput{Text: text})
		}
		return req, nil
	}

	err := middleware.ParseJSONBody(r, &req)
	return req, err
}

func decodeVoteRequest(r *http.Request) (models.CastVoteRequest, error) {
	var req models.CastVoteRequest
	if middleware.IsFormRequest(r) {
		if err := middleware.ParseFormBody(r); err != nil {
			return req, err
		}
		req.OptionID = strings.TrimSpace(r.PostForm.Get("optionId"))
		return req, nil
	}

	err := middleware.ParseJSONBody(r, &req)
	return req, err
}

func badBody(w http.ResponseWriter) {
	middleware.ErrorResponse(w, http.StatusBadRequest, string(actions.KindValidation), "Invalid request body")
}
