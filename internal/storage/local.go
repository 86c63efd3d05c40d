package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorrupted はストレージファイルを JSON として読めない場合のエラーです。
var ErrCorrupted = errors.New("storage file is corrupted")

// Local は 1 つの JSON ファイルにキーと値を保存するストレージです。
// プロセスを再起動しても内容が残ります。
type Local struct {
	path string
	mu   sync.Mutex
}

// NewLocal は Local を作成します。保存先ディレクトリが無ければ作成します。
func NewLocal(path string) (*Local, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
	}
	return &Local{path: path}, nil
}

// Path は保存先ファイルのパスを返します。
func (l *Local) Path() string {
	return l.path
}

// GetItem は値を取得します。
func (l *Local) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load()
	if err != nil {
		return "", false, err
	}
	value, ok := items[key]
	return value, ok, nil
}

// SetItem は値を保存します。
// ファイルが壊れている場合は <path>.corrupt に退避し、空の状態から書き直します。
func (l *Local) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.loadForWrite()
	if err != nil {
		return err
	}
	items[key] = value
	return l.save(items)
}

// CorruptPath は壊れたファイルの退避先を返します。
func (l *Local) CorruptPath() string {
	return l.path + ".corrupt"
}

// RemoveItem は値を削除します。存在しないキーはエラーになりません。
func (l *Local) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return l.save(items)
}

func (l *Local) load() (map[string]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	items := map[string]string{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return items, nil
}

// loadForWrite は書き込み前の読み込みです。壊れたファイルは退避して空の map を返します。
func (l *Local) loadForWrite() (map[string]string, error) {
	items, err := l.load()
	if errors.Is(err, ErrCorrupted) {
		if err := os.Rename(l.path, l.CorruptPath()); err != nil {
			return nil, fmt.Errorf("failed to move corrupted storage file: %w", err)
		}
		return map[string]string{}, nil
	}
	return items, err
}

// save は一時ファイルに書き出してから rename で置き換えます。
func (l *Local) save(items map[string]string) error {
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".storage-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, l.path)
}
