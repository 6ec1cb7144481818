package lobby

import "context"

// Directory mirrors room summaries to an external index so operators and
// other processes can see which rooms are live. Failures never affect play.
type Directory interface {
	Publish(ctx context.Context, info RoomInfo) error
	Remove(ctx context.Context, roomID string) error
	List(ctx context.Context) ([]RoomInfo, error)
}

// NopDirectory discards everything.
type NopDirectory struct{}

func (NopDirectory) Publish(context.Context, RoomInfo) error  { return nil }
func (NopDirectory) Remove(context.Context, string) error     { return nil }
func (NopDirectory) List(context.Context) ([]RoomInfo, error) { return nil, nil }
