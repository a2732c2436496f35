// Package roi locates the projected slide inside a lecture frame.
//
// The locator runs Canny edge detection over a black-padded grayscale copy of
// the frame and keeps the largest external contour. Regions smaller than the
// configured width, height, or area are rejected with ErrNotFound so small
// on-screen widgets are never mistaken for the slide.
package roi
