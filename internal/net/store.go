package net

// SessionStore tracks live sessions by id. Game loop only.
type SessionStore struct {
	byID  map[uint64]*Session
	order []uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	if _, ok := st.byID[s.ID()]; ok {
		return
	}
	st.byID[s.ID()] = s
	st.order = append(st.order, s.ID())
}

func (st *SessionStore) Remove(id uint64) {
	if _, ok := st.byID[id]; !ok {
		return
	}
	delete(st.byID, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *SessionStore) Get(id uint64) *Session { return st.byID[id] }

func (st *SessionStore) Len() int { return len(st.byID) }

// ForEach visits sessions in accept order. fn may remove the visited session.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, id := range append([]uint64(nil), st.order...) {
		if s, ok := st.byID[id]; ok {
			fn(s)
		}
	}
}

// CloseAll closes every session.
func (st *SessionStore) CloseAll() {
	st.ForEach(func(s *Session) { s.Close() })
}
