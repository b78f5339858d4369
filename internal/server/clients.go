package server

// ClientID indexes the client slab. IDs of removed clients are reused.
type ClientID uint32

// Clients is the registry of live clients. It owns every *Client it holds
// and does no socket teardown of its own.
type Clients struct {
	slots []*Client
	free  []ClientID
	n     int
}

func NewClients() *Clients {
	return &Clients{}
}

func (cs *Clients) Insert(c *Client) ClientID {
	var id ClientID
	if n := len(cs.free); n > 0 {
		id = cs.free[n-1]
		cs.free = cs.free[:n-1]
		cs.slots[id] = c
	} else {
		id = ClientID(len(cs.slots))
		cs.slots = append(cs.slots, c)
	}
	c.id = id
	cs.n++
	return id
}

func (cs *Clients) Get(id ClientID) (*Client, bool) {
	if int(id) >= len(cs.slots) || cs.slots[id] == nil {
		return nil, false
	}
	return cs.slots[id], true
}

func (cs *Clients) Remove(id ClientID) (*Client, bool) {
	c, ok := cs.Get(id)
	if !ok {
		return nil, false
	}
	cs.slots[id] = nil
	cs.free = append(cs.free, id)
	cs.n--
	return c, true
}

// Each visits live clients in id order. fn must not insert or remove.
func (cs *Clients) Each(fn func(ClientID, *Client)) {
	for i, c := range cs.slots {
		if c != nil {
			fn(ClientID(i), c)
		}
	}
}

// IDs returns the live client ids in ascending order.
func (cs *Clients) IDs() []ClientID {
	ids := make([]ClientID, 0, cs.n)
	for i, c := range cs.slots {
		if c != nil {
			ids = append(ids, ClientID(i))
		}
	}
	return ids
}

func (cs *Clients) Len() int { return cs.n }
