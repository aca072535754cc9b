package apiclient

import (
	"context"
	"net/http"

	"github.com/Mutter0815/mailflow/pkg/model"
)

func (c *Client) ListContacts(ctx context.Context, filter string, page, size int) (model.Page[model.Contact], error) {
	var out model.Page[model.Contact]
	err := c.do(ctx, http.MethodGet, "/api/v1/contacts", listQuery(filter, page, size), nil, &out)
	return validated(out, err)
}

func (c *Client) GetContact(ctx context.Context, id string) (model.Contact, error) {
	if err := checkID(id); err != nil {
		return model.Contact{}, err
	}
	var out model.Contact
	err := c.do(ctx, http.MethodGet, "/api/v1/contacts/"+id, nil, nil, &out)
	return validated(out, err)
}

func (c *Client) CreateContact(ctx context.Context, in model.ContactInput) (model.Contact, error) {
	if err := model.Validate(in); err != nil {
		return model.Contact{}, err
	}
	var out model.Contact
	err := c.do(ctx, http.MethodPost, "/api/v1/contacts", nil, in, &out)
	return validated(out, err)
}

func (c *Client) UpdateContact(ctx context.Context, id string, in model.ContactInput) (model.Contact, error) {
	if err := checkID(id); err != nil {
		return model.Contact{}, err
	}
	if err := model.Validate(in); err != nil {
		return model.Contact{}, err
	}
	var out model.Contact
	err := c.do(ctx, http.MethodPut, "/api/v1/contacts/"+id, nil, in, &out)
	return validated(out, err)
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/api/v1/contacts/"+id, nil, nil, nil)
}

func (c *Client) ListSegments(ctx context.Context, filter string, page, size int) (model.Page[model.Segment], error) {
	var out model.Page[model.Segment]
	err := c.do(ctx, http.MethodGet, "/api/v1/segments", listQuery(filter, page, size), nil, &out)
	return validated(out, err)
}

func (c *Client) CreateSegment(ctx context.Context, in model.SegmentInput) (model.Segment, error) {
	if in.ContactIDs == nil {
		in.ContactIDs = []string{}
	}
	if err := model.Validate(in); err != nil {
		return model.Segment{}, err
	}
	var out model.Segment
	err := c.do(ctx, http.MethodPost, "/api/v1/segments", nil, in, &out)
	return validated(out, err)
}

func (c *Client) ListTemplates(ctx context.Context, filter string, page, size int) (model.Page[model.Template], error) {
	var out model.Page[model.Template]
	err := c.do(ctx, http.MethodGet, "/api/v1/templates", listQuery(filter, page, size), nil, &out)
	return validated(out, err)
}

func (c *Client) CreateTemplate(ctx context.Context, in model.TemplateInput) (model.Template, error) {
	if err := model.Validate(in); err != nil {
		return model.Template{}, err
	}
	var out model.Template
	err := c.do(ctx, http.MethodPost, "/api/v1/templates", nil, in, &out)
	return validated(out, err)
}
