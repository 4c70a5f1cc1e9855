// Package unet models the command-line surface of the external U-Net
// program: its modes, its flags with their built-in defaults, and the
// rules an invocation must satisfy before it is worth handing to a GPU
// node. The program itself is never executed from here.
package unet
