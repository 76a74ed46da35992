package types

// Wire protocol for the jam realtime channel. Every frame is a JSON
// envelope: { "event": string, "data": object }.

// Client -> Server
// join:jam:
//   sessionId: string
//
// leave:jam:
//   sessionId: string
//
// jam:play (host only):
//   songRef: string
//   position: number   // seconds
//   seq: number        // monotonic per session, optional
//   timestamp: number  // unix millis
//
// jam:pause (host only):
//   position: number   // informational, not force-applied
//   seq: number
//   timestamp: number
//
// jam:seek (host only):
//   position: number
//   seq: number
//   timestamp: number
//
// jam:song_change (host only):
//   songRef: string
//   seq: number
//   timestamp: number

// Server -> Client
// jam:state (sent once after join:jam, bootstrap snapshot):
//   sessionId: string
//   currentSong: string
//   playing: boolean
//   position: number     // authoritative only as of lastUpdated
//   lastUpdated: number  // unix millis
//   queue: string[]
//
// jam:participant_joined:
//   user: string
//
// jam:participant_left:
//   user: string
//
// jam:queue_updated:
//   queue: string[]
//
// jam:error:
//   error: string
//
// All jam:* transport events are also relayed server -> client to every
// room member except the sender, with the payloads above.
