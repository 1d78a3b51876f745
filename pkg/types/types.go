// Package types holds the data model shared across the object store,
// metadata index, ACL store, local database and router: tag maps,
// documents, peers, and the per-call context carrying caller identity and
// routing intent.
package types

import "strings"

// Key identifies a stored blob within an object store backend.
type Key = uint32

// ReservedTagPrefix marks a tag name as system-owned; client-supplied tag
// maps may never contain a key with this prefix.
const ReservedTagPrefix = ":"

const (
	TagCollection = ":collection"
	TagACL        = ":acl"
	TagSize       = ":size"
	TagCreated    = ":created"
	TagUpdated    = ":updated"
	TagDeleted    = ":deleted"
)

// TagMap is a flat string-to-string tag map attached to a document.
type TagMap map[string]string

// IsReserved reports whether name is a system tag a client may not set directly.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedTagPrefix)
}

// HasReserved reports whether any key in the map is reserved.
func (m TagMap) HasReserved() bool {
	for k := range m {
		if IsReserved(k) {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy of the tag map.
func (m TagMap) Clone() TagMap {
	out := make(TagMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Collection returns the value of the :collection tag, if set.
func (m TagMap) Collection() string {
	return m[TagCollection]
}

// IsCollection reports whether the map's :collection tag equals want, or
// true when want is empty (no scoping requested).
func (m TagMap) IsCollection(want string) bool {
	if want == "" {
		return true
	}
	return m[TagCollection] == want
}

// IsDeleted reports whether the map carries a truthy :deleted tag.
func (m TagMap) IsDeleted() bool {
	return m[TagDeleted] == "1"
}

// Object is a full document: its key, tag map, and (optionally) its blob.
// Data is nil for metadata-only results such as Find.
type Object struct {
	Key  Key
	Meta TagMap
	Data []byte
}

// Authorization identifies the caller of a database operation.
type Authorization struct {
	kind authKind
	user uint64
}

type authKind int

const (
	authInvalid authKind = iota
	authOwner
	authUser
)

// OwnerAuth returns an Authorization representing the node's own owner identity.
func OwnerAuth() Authorization { return Authorization{kind: authOwner} }

// UserAuth returns an Authorization representing an authenticated remote user.
func UserAuth(id uint64) Authorization { return Authorization{kind: authUser, user: id} }

// InvalidAuth returns an Authorization representing a failed or absent authentication.
func InvalidAuth() Authorization { return Authorization{kind: authInvalid} }

// IsOwner reports whether this Authorization is the database owner.
func (a Authorization) IsOwner() bool { return a.kind == authOwner }

// IsValid reports whether this Authorization carries any authenticated identity.
func (a Authorization) IsValid() bool { return a.kind != authInvalid }

// UserID returns the authenticated user id and true, or (0, false) if this
// Authorization isn't a User.
func (a Authorization) UserID() (uint64, bool) {
	if a.kind == authUser {
		return a.user, true
	}
	return 0, false
}

// Route selects where a Database operation should execute.
type Route struct {
	remote bool
	peerID uint32
}

// LocalRoute executes against this node's own database.
func LocalRoute() Route { return Route{} }

// RemoteRoute executes against the peer identified by id.
func RemoteRoute(peerID uint32) Route { return Route{remote: true, peerID: peerID} }

// IsRemote reports whether this route targets a remote peer.
func (r Route) IsRemote() bool { return r.remote }

// PeerID returns the target peer id and true, or (0, false) for a local route.
func (r Route) PeerID() (uint32, bool) {
	if r.remote {
		return r.peerID, true
	}
	return 0, false
}

// Context carries caller identity and routing intent through every
// database operation.
type Context struct {
	Auth  Authorization
	Route Route
}

// LocalOwner is the common case: the node acting as itself against its own data.
func LocalOwner() Context {
	return Context{Auth: OwnerAuth(), Route: LocalRoute()}
}

// Peer describes a member of the federated trust network as resolved
// through an external PeersList.
type Peer struct {
	ID          uint32
	Name        string
	Email       string
	PublicKey   []byte
	Host        string
	Description string
}
