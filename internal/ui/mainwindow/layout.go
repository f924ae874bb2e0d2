package mainwindow

import "fyne.io/fyne/v2"

// sizeWatcher stacks its children over the full area and reports size
// changes. fyne has no window resize callback, so the root layout is the
// only place the new size is seen.
type sizeWatcher struct {
	onResize func(fyne.Size)
	last     fyne.Size
}

func (watcher *sizeWatcher) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	for _, object := range objects {
		object.Move(fyne.NewPos(0, 0))
		object.Resize(size)
	}
	if size == watcher.last {
		return
	}
	watcher.last = size
	if watcher.onResize != nil {
		watcher.onResize(size)
	}
}

func (watcher *sizeWatcher) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var minSize fyne.Size
	for _, object := range objects {
		minSize = minSize.Max(object.MinSize())
	}
	return minSize
}
