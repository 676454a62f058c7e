package loader

import (
	"io/fs"
	"sync"

	"github.com/go-faster/errors"
)

// ResourceResolver opens packaged resources by namespace and relative path.
type ResourceResolver interface {
	Open(namespace, name string) (fs.File, error)
}

var _ ResourceResolver = (*FSResolver)(nil)

// FSResolver resolves packaged resources from registered file systems,
// e.g. embed.FS of a package or os.DirFS of an installed data directory.
type FSResolver struct {
	mux        sync.RWMutex
	namespaces map[string]fs.FS
}

func NewFSResolver() *FSResolver {
	return &FSResolver{
		namespaces: make(map[string]fs.FS),
	}
}

// Register fsys as namespace, replacing previous registration.
func (r *FSResolver) Register(namespace string, fsys fs.FS) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.namespaces[namespace] = fsys
}

func (r *FSResolver) Open(namespace, name string) (fs.File, error) {
	r.mux.RLock()
	fsys, ok := r.namespaces[namespace]
	r.mux.RUnlock()
	if !ok {
		return nil, &NamespaceNotFoundErr{Namespace: namespace}
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	return f, nil
}
