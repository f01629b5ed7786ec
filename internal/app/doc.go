// Package app contains the core application logic. It loads a scene
// description, cooks the requested nodes, writes their values and, in watch
// mode, keeps the scene in sync with the files it was loaded from.
package app
