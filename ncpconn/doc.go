/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ncpconn implements the NCP connection state machine: a
// full-duplex framing layer over a byte stream transport (typically
// TCP) that serializes outgoing packets, demultiplexes incoming fields
// to interested consumers, and surfaces remote command errors and
// transport failures through a small set of typed errors.
//
// A Connection is built by client.Connect or server.Serve, which run
// the handshake before returning it in the Ready state. See Connection
// for the operations available once a connection is ready.
package ncpconn
