package localdb

import (
	"context"

	"github.com/tagdb/tagdb/pkg/acl"
	"github.com/tagdb/tagdb/pkg/dberr"
	"github.com/tagdb/tagdb/pkg/types"
)

// isAuthorized decides whether rctx.Auth may exercise required against a
// document carrying meta. The owner always passes. An authenticated user
// passes only if the document carries a resolvable :acl tag granting them
// required; a missing ACL or an invalid caller both deny.
func (d *LocalDatabase) isAuthorized(ctx context.Context, rctx types.Context, meta types.TagMap, required acl.Permissions) error {
	if rctx.Auth.IsOwner() {
		return nil
	}

	user, ok := rctx.Auth.UserID()
	if !ok {
		return dberr.ErrUnauthorized
	}

	raw, hasACL := meta[types.TagACL]
	if !hasACL {
		return dberr.ErrUnauthorized
	}

	id := acl.ParseID(raw)
	rec, found, err := d.acls.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found || !rec.Grants(user, required) {
		return dberr.ErrUnauthorized
	}
	return nil
}
