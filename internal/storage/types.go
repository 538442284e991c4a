package storage

import (
	"encoding"

	"parley/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

var identityKey = []byte("identity")

type DBIdentity struct {
	Token    string `msgpack:"token"`
	UserID   string `msgpack:"userId"`
	Email    string `msgpack:"email"`
	Name     string `msgpack:"name"`
	Avatar   string `msgpack:"avatar"`
	Status   string `msgpack:"status"`
	LastSeen string `msgpack:"lastSeen"`
	SavedAt  int64  `msgpack:"savedAt"`
}

func newDBIdentity(id models.Identity) *DBIdentity {
	return &DBIdentity{
		Token:    id.Token,
		UserID:   id.User.ID,
		Email:    id.User.Email,
		Name:     id.User.Name,
		Avatar:   id.User.Avatar,
		Status:   string(id.User.Status),
		LastSeen: id.User.LastSeen,
	}
}

func (i *DBIdentity) Identity() models.Identity {
	return models.Identity{
		Token: i.Token,
		User: models.User{
			ID:       i.UserID,
			Email:    i.Email,
			Name:     i.Name,
			Avatar:   i.Avatar,
			Status:   models.Presence(i.Status),
			LastSeen: i.LastSeen,
		},
	}
}

func (i *DBIdentity) Key() []byte {
	return identityKey
}

func (i *DBIdentity) MarshalBinary() (data []byte, err error) {
	type alias DBIdentity
	return msgpack.Marshal((*alias)(i))
}

func (i *DBIdentity) UnmarshalBinary(data []byte) error {
	type alias DBIdentity
	return msgpack.Unmarshal(data, (*alias)(i))
}

// Upload remembers where a file was stored so sending it again does not
// upload the same bytes twice.
type Upload struct {
	Hash      string `msgpack:"hash"`
	URL       string `msgpack:"url"`
	MimeType  string `msgpack:"mimeType"`
	Size      int64  `msgpack:"size"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (u *Upload) Key() []byte {
	return []byte(u.Hash)
}

func (u *Upload) MarshalBinary() (data []byte, err error) {
	type alias Upload
	return msgpack.Marshal((*alias)(u))
}

func (u *Upload) UnmarshalBinary(data []byte) error {
	type alias Upload
	return msgpack.Unmarshal(data, (*alias)(u))
}
